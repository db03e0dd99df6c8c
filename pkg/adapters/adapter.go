package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nexusgate/pkg/proxy/types"
	"nexusgate/pkg/transport"
)

// Kind identifies a backend variant.
type Kind string

// Supported backend kinds. KindAuto defers to URL-pattern detection.
const (
	KindAuto     Kind = ""
	KindLightLLM Kind = "lightllm"
	KindVLLM     Kind = "vllm"
	KindOpenAI   Kind = "openai"
	KindAzure    Kind = "azure"
	KindAWS      Kind = "aws"
	KindCustom   Kind = "custom"
	KindDirect   Kind = "direct"
)

// DirectSentinel is the backend URL value that selects the in-process
// adapter instead of an HTTP backend.
const DirectSentinel = "direct"

// Framing describes how a backend frames its streaming response.
type Framing string

const (
	// FramingSSE is "data: <json>" server-sent events.
	FramingSSE Framing = "sse"
	// FramingNDJSON is one JSON record per line.
	FramingNDJSON Framing = "ndjson"
	// FramingNone marks adapters without native streaming.
	FramingNone Framing = "none"
)

// Config carries everything an adapter needs to address its backend.
type Config struct {
	// Kind selects the variant; KindAuto enables URL detection.
	Kind Kind

	// BaseURL is the backend base URL, or DirectSentinel.
	BaseURL string

	// ModelID is the default model when a request names none.
	ModelID string

	// Credential is the bearer token or api-key, already resolved.
	Credential string

	// AzureDeployment and AzureAPIVersion fill the Azure URL template.
	AzureDeployment string
	AzureAPIVersion string

	// AWS settings for Bedrock request signing.
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string
}

// Adapter translates between the OpenAI wire shape and one backend.
//
// BuildRequest may be called with stream=false even when the caller asked
// for streaming: the handler falls back to a unary upstream call and
// synthesizes the stream for backends without native streaming.
type Adapter interface {
	// Name returns the adapter name used in logs and metric labels.
	Name() string

	// BuildRequest produces a ready-to-send upstream request.
	BuildRequest(req *types.ChatCompletionRequest, stream bool) (*transport.UpstreamRequest, error)

	// ParseResponse normalizes a unary 2xx body to the OpenAI shape.
	ParseResponse(body []byte) (*types.ChatCompletionResponse, error)

	// ParseStreamChunk translates one upstream streaming record into
	// zero or more OpenAI chunks. terminal reports that the record ends
	// the stream.
	ParseStreamChunk(event []byte) (chunks []*types.ChatCompletionChunk, terminal bool, err error)

	// Framing reports the backend's stream framing.
	Framing() Framing

	// SupportsStreaming reports native streaming support.
	SupportsStreaming() bool

	// SupportsTools reports first-class tool-call support.
	SupportsTools() bool

	// SupportsMultipleChoices reports whether one upstream call can
	// carry n>1. When false the handler fans out sequentially.
	SupportsMultipleChoices() bool
}

// Invoker is implemented by adapters that execute in-process instead of
// over HTTP. The handler bypasses the transport for these.
type Invoker interface {
	Invoke(ctx context.Context, req *types.ChatCompletionRequest) (*types.ChatCompletionResponse, error)
}

// DirectHandler is the in-process completion function bound to the Direct
// adapter by an embedder.
type DirectHandler func(ctx context.Context, req *types.ChatCompletionRequest) (*types.ChatCompletionResponse, error)

// New builds the adapter selected by cfg. When cfg.Kind is KindAuto the
// backend is recognized from the URL.
func New(cfg Config) (Adapter, error) {
	kind := cfg.Kind
	if kind == KindAuto {
		kind = DetectKind(cfg.BaseURL)
	}

	switch kind {
	case KindLightLLM:
		return newLightLLM(cfg), nil
	case KindVLLM:
		return newVLLM(cfg), nil
	case KindOpenAI:
		return newOpenAI(cfg), nil
	case KindAzure:
		return newAzure(cfg)
	case KindAWS:
		return newBedrock(cfg)
	case KindCustom:
		return newCustom(cfg), nil
	case KindDirect:
		return NewDirect(cfg.ModelID, nil), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
}

// DetectKind recognizes the backend variant from a URL, mirroring how
// operators actually deploy these servers. Explicit configuration always
// wins over detection.
func DetectKind(baseURL string) Kind {
	url := strings.ToLower(baseURL)
	switch {
	case strings.Contains(url, "azure.com") || strings.Contains(url, "azure.openai"):
		return KindAzure
	case strings.Contains(url, "bedrock") || strings.Contains(url, "amazonaws.com"):
		return KindAWS
	case strings.Contains(url, "vllm"):
		return KindVLLM
	case strings.Contains(url, "/v1") || strings.Contains(url, "openai.com"):
		return KindOpenAI
	case url == DirectSentinel:
		return KindDirect
	case strings.Contains(url, "lightllm") || strings.Contains(url, "localhost"):
		return KindLightLLM
	default:
		return KindCustom
	}
}

// clock is swappable in tests for deterministic created timestamps.
var clock = time.Now

// newCompletionID synthesizes an OpenAI-style completion identifier for
// backends that do not supply one.
func newCompletionID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
