package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// credentials are the license fields a desktop client presents. Current
// clients send headers; legacy URL shapes carried them as query parameters.
type credentials struct {
	Key        string
	HardwareID string
	AppVersion string
}

func extractCredentials(c *gin.Context) credentials {
	key := c.GetHeader("X-License-Key")
	if key == "" {
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			key = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if key == "" {
		key = c.Query("key")
	}

	hw := c.GetHeader("X-Hardware-ID")
	if hw == "" {
		hw = c.Query("hwid")
	}

	app := c.GetHeader("X-App-Version")
	if app == "" {
		app = c.Query("appVersion")
	}

	return credentials{Key: key, HardwareID: hw, AppVersion: app}
}

// parseTuple reads the artifact tuple from path parameters (legacy shape) or
// query parameters (canonical shape).
func parseTuple(c *gin.Context) (models.Channel, models.Platform, models.Arch, error) {
	pick := func(name string) string {
		if v := c.Param(name); v != "" {
			return v
		}
		return c.Query(name)
	}

	channel, err := models.ParseChannel(pick("channel"))
	if err != nil {
		return "", "", "", err
	}
	platform, err := models.ParsePlatform(pick("platform"))
	if err != nil {
		return "", "", "", err
	}
	arch, err := models.ParseArch(pick("arch"))
	if err != nil {
		return "", "", "", err
	}
	return channel, platform, arch, nil
}
