// Package httpbintest serves the subset of httpbin.org that courier's tests
// and examples talk to: /get, /post, /anything, /status/{code}, /bearer,
// /xml, /json, /users, /delay/{seconds} and /cookies.
//
// Error statuses answer with {"error":{"code":...,"message":...}}, so
// requests can point ErrorKeyPath at "error", "message".
//
//	srv := httpbintest.New(t)
//	client, _ := apiclient.New(srv.URL, transport)
package httpbintest
