// Package shared holds helpers used by more than one package and owned by none.
//
// The testutil subpackage provides a buffered slog handler for asserting log
// output and a fake World Bank API server for client, pipeline and HTTP tests:
//
//	func TestSomething(t *testing.T) {
//	    logger, handler := testutil.NewTestLogger(t)
//	    api := testutil.NewWorldBankServer(t, nil)
//	    // point a client at api.BaseURL() and log through logger
//	    testutil.AssertNoErrors(t, handler)
//	}
package shared
