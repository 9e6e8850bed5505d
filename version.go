package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Version information
// These can be overridden at build time using ldflags:
// go build -ldflags "-X main.Version=1.0.0 -X main.BuildTime=2024-01-01 -X main.GitCommit=abc123"
var (
	Version   = "0.1.0"
	BuildTime = ""
	GitCommit = ""
)

// VersionInfo holds version information for API responses
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`
}

// GetVersion reports the running build.
func GetVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, VersionInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})
}
