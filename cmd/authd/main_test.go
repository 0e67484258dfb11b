package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-auth/internal/app"
	_ "github.com/odyssey-erp/odyssey-auth/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode(), "guard import must flip test mode")

	// Returns immediately instead of binding sockets or dialing stores.
	main()
}
