package fulfillment

const (
	deviceTypeLight = "action.devices.types.LIGHT"

	traitOnOff        = "action.devices.traits.OnOff"
	traitColorSetting = "action.devices.traits.ColorSetting"
	traitBrightness   = "action.devices.traits.Brightness"
)

type syncPayload struct {
	AgentUserID string       `json:"agentUserId"`
	Devices     []syncDevice `json:"devices"`
}

type syncDevice struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Traits     []string       `json:"traits"`
	Name       syncDeviceName `json:"name"`
	DeviceInfo syncDeviceInfo `json:"deviceInfo"`
	Attributes syncAttributes `json:"attributes"`
}

type syncDeviceName struct {
	Name string `json:"name"`
}

type syncDeviceInfo struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	HWVersion    string `json:"hwVersion"`
	SWVersion    string `json:"swVersion"`
}

type syncAttributes struct {
	ColorModel string `json:"colorModel"`
}

// Static descriptor, stored state is not touched
func (d *Dispatcher) sync(requestID string) response[syncPayload] {
	return response[syncPayload]{
		RequestID: requestID,
		Payload: syncPayload{
			AgentUserID: d.agentUserID,
			Devices: []syncDevice{{
				ID:     DeviceID,
				Type:   deviceTypeLight,
				Traits: []string{traitOnOff, traitColorSetting, traitBrightness},
				Name:   syncDeviceName{Name: "DeskLed"},
				DeviceInfo: syncDeviceInfo{
					Manufacturer: "Array21 Development",
					Model:        "PiZero",
					HWVersion:    "0.1.0",
					SWVersion:    d.swVersion,
				},
				Attributes: syncAttributes{ColorModel: "rgb"},
			}},
		},
	}
}
