package httpclient

import "testing"

func TestClassifyHost(t *testing.T) {
	tests := []struct {
		host string
		want HostClass
	}{
		{"localhost", HostLoopback},
		{"localhost:8000", HostLoopback},
		{"127.0.0.1", HostLoopback},
		{"127.0.0.1:9000", HostLoopback},
		{"[::1]:8080", HostLoopback},
		{"10.0.0.5", HostPrivate},
		{"192.168.1.10:8000", HostPrivate},
		{"172.16.0.1", HostPrivate},
		{"169.254.1.1", HostPrivate},
		{"8.8.8.8", HostPublic},
		{"api.example.com", HostPublic},
		{"api.example.com:443", HostPublic},
	}

	for _, tt := range tests {
		if got := ClassifyHost(tt.host); got != tt.want {
			t.Errorf("ClassifyHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestCheckBackendURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		env      string
		wantWarn bool
		wantErr  bool
	}{
		{"https public in production", "https://api.openai.com/v1", "production", false, false},
		{"http public in production", "http://api.example.com", "production", false, true},
		{"http public in development", "http://api.example.com", "development", true, false},
		{"http loopback in production", "http://localhost:8000", "production", false, false},
		{"http private in production", "http://10.0.0.5:8000", "production", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warn, err := CheckBackendURL(tt.url, tt.env)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if warn != tt.wantWarn {
				t.Errorf("warn = %v, want %v", warn, tt.wantWarn)
			}
		})
	}
}

func TestNew_PoolSettings(t *testing.T) {
	client := New(DefaultOptions())
	if client.Timeout != 0 {
		t.Error("shared client must not carry an overall timeout; deadlines are per-request")
	}
}
