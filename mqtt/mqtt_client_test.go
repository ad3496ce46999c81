package mqtt

import (
	"testing"

	"github.com/eclipse/paho.golang/paho"
)

type recordingHandler struct {
	topic    string
	received []string
}

func (rh *recordingHandler) MqttHandle(pub *paho.Publish) {
	rh.received = append(rh.received, string(pub.Payload))
}

func (rh *recordingHandler) MqttSubscribeTopic() string {
	return rh.topic
}

func TestMqttClient_Dispatch(t *testing.T) {
	mc, err := NewMqttClient("mqtt://localhost:1883", "garden")
	if err != nil {
		t.Fatal(err)
	}

	first := &recordingHandler{topic: "garden/stations/0/set"}
	second := &recordingHandler{topic: "garden/stations/1/set"}
	mc.setHandlers([]MqttHandler{first, second})

	if !mc.dispatch(&paho.Publish{Topic: "garden/stations/1/set", Payload: []byte(`{"status":true}`)}) {
		t.Error("expected message to be handled")
	}
	if mc.dispatch(&paho.Publish{Topic: "garden/other", Payload: []byte("x")}) {
		t.Error("expected unknown topic to be ignored")
	}

	if len(first.received) != 0 {
		t.Errorf("first handler got %v", first.received)
	}
	if len(second.received) != 1 || second.received[0] != `{"status":true}` {
		t.Errorf("second handler got %v", second.received)
	}

	if len(mc.topics()) != 2 {
		t.Errorf("got topics %v", mc.topics())
	}
}

func TestMqttClient_NotConnected(t *testing.T) {
	mc, err := NewMqttClient("mqtt://localhost:1883", "garden")
	if err != nil {
		t.Fatal(err)
	}

	if mc.Publish("garden/state", []byte("{}")) == nil {
		t.Error("expected error publishing without connection")
	}
}
