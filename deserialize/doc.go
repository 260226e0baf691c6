// Package deserialize turns response payloads into typed values.
//
// A Deserializer is chosen at the call site, so the result type is checked
// at compile time:
//
//	user := deserialize.JSON[User]("results", "0")
//	users := deserialize.JSONCollection[User]("results")
//	show := deserialize.XML[Slideshow]("slideshow")
//
// Keypaths walk nested JSON objects (or XML elements) before decoding. A
// collection whose keypath does not resolve decodes to an empty slice; a
// single malformed element fails the whole collection.
package deserialize
