package listsync

import (
	"testing"

	"github.com/DOCHIS/laftel-plus/backend/laftel"
)

func newClientWithoutToken(t *testing.T, baseURL string) *laftel.Client {
	t.Helper()
	c, err := laftel.New(laftel.Config{BaseURL: baseURL, Tokens: laftel.StaticToken("")})
	if err != nil {
		t.Fatalf("laftel.New error: %v", err)
	}
	return c
}
