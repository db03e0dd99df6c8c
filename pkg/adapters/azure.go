package adapters

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"nexusgate/pkg/proxy/types"
	"nexusgate/pkg/transport"
)

// defaultAzureAPIVersion is used when the configuration omits one.
const defaultAzureAPIVersion = "2024-02-01"

// Azure targets the Azure OpenAI Service. The deployment name and API
// version live in the URL; authentication uses the api-key header, and the
// model field is dropped because the deployment fixes it.
type Azure struct {
	openaiWire
	cfg Config
	url string
}

func newAzure(cfg Config) (*Azure, error) {
	if cfg.AzureDeployment == "" {
		return nil, fmt.Errorf("azure backend requires a deployment name")
	}

	apiVersion := cfg.AzureAPIVersion
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(cfg.BaseURL, "/"),
		url.PathEscape(cfg.AzureDeployment),
		url.QueryEscape(apiVersion),
	)

	return &Azure{cfg: cfg, url: endpoint}, nil
}

// Name implements Adapter.
func (a *Azure) Name() string { return "azure" }

// BuildRequest implements Adapter.
func (a *Azure) BuildRequest(req *types.ChatCompletionRequest, stream bool) (*transport.UpstreamRequest, error) {
	// The deployment in the URL selects the model.
	body, err := a.buildBody(req, "", stream)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("api-key", a.cfg.Credential)
	return upstreamPost(a.url, header, body, stream), nil
}

// ParseResponse implements Adapter.
func (a *Azure) ParseResponse(body []byte) (*types.ChatCompletionResponse, error) {
	resp, err := a.parseResponse(body)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = a.cfg.ModelID
	}
	return resp, nil
}

// ParseStreamChunk implements Adapter.
func (a *Azure) ParseStreamChunk(event []byte) ([]*types.ChatCompletionChunk, bool, error) {
	return a.parseStreamChunk(event)
}

// Framing implements Adapter.
func (a *Azure) Framing() Framing { return FramingSSE }

// SupportsStreaming implements Adapter.
func (a *Azure) SupportsStreaming() bool { return true }

// SupportsTools implements Adapter.
func (a *Azure) SupportsTools() bool { return true }

// SupportsMultipleChoices implements Adapter.
func (a *Azure) SupportsMultipleChoices() bool { return true }
