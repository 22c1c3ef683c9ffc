package version

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver"
)

var (
	// Version contains the current version of trafficlightd
	Version = "dev"

	// CommitHash contains the current git commit hash
	CommitHash = "unknown"

	// BuildTime contains the time of build
	BuildTime = "unknown"
)

var (
	ErrInvalidVersion      = errors.New("invalid version")
	ErrIncompatibleVersion = errors.New("incompatible version")
)

// Info is the JSON form served by the API.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit"`
	BuildTime  string `json:"buildTime"`
}

func Current() Info {
	return Info{Version: Version, CommitHash: CommitHash, BuildTime: BuildTime}
}

func String() string {
	return fmt.Sprintf("%s (commit: %s, built at: %s)", Version, CommitHash, BuildTime)
}

// Compatible reports whether a client built at clientVersion can talk to
// this server. Major versions must match; a dev build accepts anyone.
func Compatible(clientVersion string) error {
	return compatible(Version, clientVersion)
}

func compatible(serverVersion, clientVersion string) error {
	client, err := semver.NewVersion(clientVersion)
	if err != nil {
		return fmt.Errorf("%w: client %q: %v", ErrInvalidVersion, clientVersion, err)
	}
	if serverVersion == "dev" {
		return nil
	}

	server, err := semver.NewVersion(serverVersion)
	if err != nil {
		return fmt.Errorf("%w: server %q: %v", ErrInvalidVersion, serverVersion, err)
	}
	if client.Major() != server.Major() {
		return fmt.Errorf("%w: client %s, server %s", ErrIncompatibleVersion, client, server)
	}
	return nil
}
