package emporia

// Device is one metering unit registered to the account.
type Device struct {
	// DeviceGID is the stable vendor-assigned identifier.
	DeviceGID int64 `json:"deviceGid"`

	// Model is the hardware model string (e.g. "Vue2").
	Model string `json:"model"`

	// LocationName is the user-assigned installation label.
	LocationName string `json:"locationName"`
}

// ChannelUsage is one channel of an instantaneous usage snapshot.
type ChannelUsage struct {
	// ChannelNum identifies the channel: merged mains ("1,2,3", "1,2",
	// "3,4") or an individual circuit number.
	ChannelNum string `json:"channelNum"`

	// Name is the user-assigned circuit label, empty if unset.
	Name string `json:"name"`

	// Usage is the instantaneous draw in watts. The cloud omits the field
	// for channels with no sample in the window.
	Usage *float64 `json:"usage"`
}

// loginRequest is the body for the authentication call.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse carries the bearer token for subsequent calls.
type loginResponse struct {
	Token string `json:"token"`
}

// devicesResponse wraps the account device list.
type devicesResponse struct {
	Devices []Device `json:"devices"`
}

// usageResponse wraps an instantaneous usage snapshot.
// The cloud nests per-device channel lists under deviceListUsages.
type usageResponse struct {
	DeviceListUsages struct {
		Devices []struct {
			DeviceGID     int64          `json:"deviceGid"`
			ChannelUsages []ChannelUsage `json:"channelUsages"`
		} `json:"devices"`
	} `json:"deviceListUsages"`
}
