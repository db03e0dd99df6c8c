// Package adapters translates OpenAI-shaped chat completion requests to and
// from the wire formats of the supported LLM backends.
//
// Each adapter implements the Adapter interface: it builds a ready-to-send
// upstream request, parses unary response bodies, and translates streaming
// records into OpenAI-shaped chunks. Adapters hold no sockets and perform
// no I/O; the transport package executes what they build.
//
// The New factory selects the adapter variant from explicit configuration
// or, when the backend kind is left unset, by recognizing URL patterns
// (Azure and Bedrock hostnames, vLLM and LightLLM conventions, the OpenAI
// API, and the "direct" in-process sentinel).
package adapters
