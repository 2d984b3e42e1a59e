package arr

import (
	"context"

	"github.com/lexfrei/go-arr/internal/response"
)

// UnknownVersion is reported when a healthy service does not expose a version.
const UnknownVersion = "Unknown"

// Status is the liveness of one service.
type Status struct {
	Name    string
	Healthy bool
	Version string
	Message string
}

// CheckStatus queries the profile's status endpoint. A healthy service
// reports "Online (v<version>)", with the version read from
// Profile.VersionPath or from a plain-text body; any failure reports
// "Error: <message>".
func (c *Client) CheckStatus(ctx context.Context) Status {
	req := Request{Method: c.profile.StatusMethod, Endpoint: c.profile.StatusEndpoint}
	if len(c.profile.StatusBody) > 0 {
		req.Body = c.profile.StatusBody
	}

	res := c.Execute(ctx, req)

	if !res.OK() {
		return Status{
			Name:    c.profile.Name,
			Message: "Error: " + res.Message(),
		}
	}

	version := response.Version(res.body, c.profile.VersionPath)
	if version == "" {
		version = UnknownVersion
	}

	return Status{
		Name:    c.profile.Name,
		Healthy: true,
		Version: version,
		Message: "Online (v" + version + ")",
	}
}
