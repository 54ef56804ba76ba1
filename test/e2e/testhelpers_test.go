//go:build e2e

package e2e_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/domain/match"
	"github.com/sophialabs/apicover/internal/infrastructure/wiring"
	"github.com/sophialabs/apicover/internal/testutil"
)

func testdata(name string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

func petstoreParams(opts match.Options) wiring.Params {
	return wiring.Params{
		Contracts: []contract.Source{
			{Path: testdata("openapi.yaml")},
			{Path: testdata("schema.graphql"), Name: "Petstore GraphQL"},
			{Path: testdata("petstore.proto")},
		},
		Exchanges: []exchange.Source{
			{Path: testdata("collection.json")},
			{Path: testdata("junit.xml")},
		},
		Match:          opts,
		NearMisses:     3,
		TraceSize:      10,
		RateLimiterTTL: time.Minute,
		Logger:         &testutil.NoopLogger{},
	}
}

// setupE2EServer wires the full stack over the petstore fixtures and
// publishes one computed run.
func setupE2EServer(t *testing.T, opts match.Options) (*httptest.Server, *wiring.Container) {
	t.Helper()

	c, err := wiring.New(petstoreParams(opts))
	if err != nil {
		t.Fatalf("failed to wire container: %v", err)
	}
	t.Cleanup(c.Close)

	if _, err := c.Server().Recompute(context.Background()); err != nil {
		t.Fatalf("failed to compute coverage: %v", err)
	}

	ts := httptest.NewServer(c.Server())
	t.Cleanup(ts.Close)
	return ts, c
}
