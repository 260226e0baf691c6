// Package testutil holds test helpers for components and asynchronous
// conditions. Every helper fails the calling test instead of returning an
// error.
//
//	func TestServer(t *testing.T) {
//	    srv := testutil.Start(t, httpbintest.NewComponent("127.0.0.1:0", nil))
//	    testutil.ExpectHealth(t, srv, component.StatusHealthy)
//	}
package testutil
