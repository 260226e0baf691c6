// Package component defines the lifecycle interface shared by the HTTP
// transport and the reachability service, and a Registry that starts them in
// order and stops them in reverse.
package component
