package extract

import (
	"github.com/rs/zerolog"

	"github.com/openfroyo/conformance/pkg/artifact"
)

func newArtifact(name string, kind artifact.Kind, text string) *artifact.Artifact {
	return artifact.New(artifact.Descriptor{Name: name, Kind: kind, Path: name}, name, []byte(text))
}

func newTestLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}
