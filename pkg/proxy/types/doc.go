// Package types defines the OpenAI-compatible wire types used on the
// caller-facing side of the gateway: chat completion requests, responses,
// streaming chunks, and the stable error envelope.
//
// The types in this package are provider-agnostic. Backend adapters consume
// a validated ChatCompletionRequest and produce a ChatCompletionResponse or
// a sequence of ChatCompletionChunk values; the proxy layer serializes them
// back to the caller unchanged.
//
// Optional request fields use pointer types so that "absent" and "zero" are
// distinguishable, which matters for parameters like temperature where 0 is
// a meaningful value. Unknown top-level request fields are preserved in
// Extra and re-emitted for backends that understand them.
package types
