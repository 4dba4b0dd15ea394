package seed

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resourcegraph/internal/apperr"
	"resourcegraph/internal/domain"
)

func TestParseGraphParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    GraphParams
		wantErr bool
	}{
		{"kind", "kind=metrics", GraphParams{Kind: TokenMetrics}, false},
		{"kind case and spaces", "kind=%20Models%20", GraphParams{Kind: TokenModels}, false},
		{"singular source", "kind=source", GraphParams{Kind: TokenSources}, false},
		{"unknown kind", "kind=widgets&resource=orders", GraphParams{Resources: []string{"orders"}}, true},
		{"resources", "resource=orders&resource=+&resource=model:clean", GraphParams{Resources: []string{"orders", "model:clean"}}, false},
		{"expanded", "expanded=rill.runtime.v1.Model:orders", GraphParams{Expanded: "rill.runtime.v1.Model:orders"}, false},
		{"empty", "", GraphParams{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseGraphParams(q)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrNavigation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParamsToSeeds(t *testing.T) {
	assert.Equal(t, []string{"metrics"}, ParamsToSeeds(GraphParams{Kind: TokenMetrics, Resources: []string{"x"}}))
	assert.Equal(t, []string{"orders"}, ParamsToSeeds(GraphParams{Resources: []string{"orders"}}))
	assert.Empty(t, ParamsToSeeds(GraphParams{}))
}

func TestBuildGraphURL(t *testing.T) {
	tests := []struct {
		name   string
		params GraphParams
		base   string
		want   string
	}{
		{"kind", GraphParams{Kind: TokenMetrics}, "", "/graph?kind=metrics"},
		{"kind wins", GraphParams{Kind: TokenModels, Resources: []string{"orders"}}, "", "/graph?kind=models"},
		{"resources", GraphParams{Resources: []string{"orders", "revenue"}}, "", "/graph?resource=orders&resource=revenue"},
		{"expanded", GraphParams{Resources: []string{"model:orders"}, Expanded: "rill.runtime.v1.Model:orders"}, "",
			"/graph?expanded=rill.runtime.v1.Model%3Aorders&resource=model%3Aorders"},
		{"empty", GraphParams{}, "", "/graph"},
		{"blank resources", GraphParams{Resources: []string{" ", ""}}, "/p/graph", "/p/graph"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildGraphURL(tt.params, tt.base))
		})
	}
}

func TestBuildGraphURL_RoundTrip(t *testing.T) {
	in := GraphParams{Resources: []string{"model:my model", "orders"}, Expanded: "x"}
	u, err := url.Parse(BuildGraphURL(in, ""))
	require.NoError(t, err)

	out, err := ParseGraphParams(u.Query())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResourceGraphURL(t *testing.T) {
	assert.Equal(t, "/graph?resource=model%3Aorders", ResourceGraphURL(domain.KindModel, "orders"))
	assert.Equal(t, "/graph?resource=model%3Aorders&resource=source%3Ausers",
		ResourceGraphURL(domain.KindModel, "orders", "source:users"))
	assert.Equal(t, "/graph?resource=model%3Amy+model", ResourceGraphURL(domain.KindModel, "my model"))
	assert.Equal(t, "/graph?resource=source%3Araw_data", ResourceGraphURL(domain.KindSource, "raw_data"))
	assert.Equal(t, "/graph?resource=metrics%3Arevenue", ResourceGraphURL(domain.KindMetricsView, "revenue"))
	assert.Equal(t, "/graph?resource=dashboard%3Adashboard", ResourceGraphURL(domain.KindExplore, "dashboard"))
	assert.Equal(t, "/graph?resource=orders", ResourceGraphURL("unknown", "orders"))
	assert.Equal(t, "/graph?resource=model%3A", ResourceGraphURL(domain.KindModel, ""))
}

func TestResourcesGraphURL(t *testing.T) {
	assert.Equal(t, "/graph", ResourcesGraphURL(nil))
	assert.Equal(t, "/graph?resource=model%3Aorders&resource=invalid", ResourcesGraphURL([]domain.ResourceName{
		{Kind: domain.KindModel, Name: "orders"},
		{Kind: "", Name: "invalid"},
	}))
}

func TestSeedString_ResolvesBack(t *testing.T) {
	for _, kind := range []domain.ResourceKind{
		domain.KindModel, domain.KindSource, domain.KindMetricsView,
		domain.KindExplore, domain.KindCanvas, domain.KindConnector,
	} {
		n := domain.ResourceName{Kind: kind, Name: "x"}
		assert.Equal(t, n, NormalizeSeed(SeedString(n)).Name, kind)
	}
}
