// Package config loads the conform configuration.
//
// Configuration is an optional CUE file, conform.cue by default, looked up
// in the project root. The file is unified with a closed #Config schema, so
// unknown fields are rejected and omitted fields take their defaults. The
// decoded Config is then checked against its validator struct tags.
//
//	parallelism: 2
//	format:      "markdown"
//	paths: {
//	    "Dockerfile": "docker/Dockerfile"
//	}
//	history: enabled: true
//
// Problems are reported together in a *LoadError, each entry carrying the
// file position when CUE knows it:
//
//	loader, err := config.NewLoader()
//	if err != nil {
//	    return err
//	}
//	cfg, file, err := loader.Resolve(flagConfig, root)
//
// A Loader is safe for concurrent use.
package config
