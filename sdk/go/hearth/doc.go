// Package hearth is the Go client for a running hearthd instance. It
// covers the full JSON surface: capability synthesis, safety controls,
// hot-reload, promotion, approvals, and warrants.
//
// Usage:
//
//	c, err := hearth.New(hearth.WithBaseURL("http://127.0.0.1:8470"))
//	res, err := c.CreateCapability(ctx, model.CapabilitySpec{
//	    Name: "weather_sentinel",
//	    Parameters: []model.ParameterSpec{{Name: "city", Required: true}},
//	})
//
// External users import github.com/hearthd/hearth/sdk/go/hearth.
package hearth
