// Package tracing wires the optional Langfuse callback handler that records
// every chat model and tool call made through eino.
package tracing

import (
	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"

	"github.com/54b3r/budgetai-go/internal/config"
)

// DefaultHost is used when LANGFUSE_HOST is unset.
const DefaultHost = "http://localhost:3000"

// Setup builds the Langfuse handler when LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY are set. The returned flush function must run before
// process exit. ok is false, and both other values nil, when tracing is not
// configured.
func Setup() (handler callbacks.Handler, flush func(), ok bool) {
	publicKey := config.String("LANGFUSE_PUBLIC_KEY", "")
	secretKey := config.String("LANGFUSE_SECRET_KEY", "")
	if publicKey == "" || secretKey == "" {
		return nil, nil, false
	}

	handler, flush = langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      config.String("LANGFUSE_HOST", DefaultHost),
		PublicKey: publicKey,
		SecretKey: secretKey,
		Name:      "budgetai",
	})
	return handler, flush, true
}
