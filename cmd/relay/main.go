// Relay is a single-host reverse proxy that multiplexes one GPU across
// several llama.cpp-style model services.
//
// It exposes an OpenAI-compatible API, switches the backing systemd service
// when a request names a model that is not loaded, repairs malformed tool
// calls in backend output, and keeps a persistent memory of facts the model
// asks to save.
//
// Usage:
//
//	# Start the proxy with default configuration
//	relay run
//
//	# Start with a custom configuration file
//	relay run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	relay validate
//
//	# Show version information
//	relay version
package main

func main() {
	Execute()
}
