package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Presence announcements on de1sim/system/status. All three are retained
// at QoS 1 so a late subscriber always sees the simulator's current state:
//
//	online  — published by the on-connect hook
//	offline, reason graceful_shutdown   — published by Close
//	offline, reason unexpected_disconnect — the broker's last-will, sent
//	  when the connection dies without a DISCONNECT packet

// statusPayload renders a presence message. reason is omitted when empty.
func statusPayload(status, clientID, reason string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	if reason == "" {
		return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`, status, clientID, ts)
	}
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`, status, clientID, reason, ts)
}

// configureLastWill registers the crash announcement with the broker.
func configureLastWill(opts *pahomqtt.ClientOptions, clientID string) {
	payload := statusPayload("offline", clientID, "unexpected_disconnect")
	opts.SetWill(Topics{}.SystemStatus(), payload, 1, true)
}

func (c *Client) announceOnline() {
	payload := statusPayload("online", c.cfg.Broker.ClientID, "")
	c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

func (c *Client) announceOffline() {
	payload := statusPayload("offline", c.cfg.Broker.ClientID, "graceful_shutdown")
	token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
	token.WaitTimeout(defaultPublishTimeout)
}
