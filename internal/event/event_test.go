package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shinyyama/campusconnect/internal/model"
)

func TestMessageEventWireShape(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := NewMessageEvent(ReceiveMessage, &model.Message{
		ID: "m1", ConversationID: "c1", Seq: 3, SenderID: "alice", Text: "hello", CreatedAt: at,
	})
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"event":"receive-message","data":{"chatId":"c1","message":{"id":"m1","chatId":"c1","seq":3,"senderId":"alice","text":"hello","read":false,"createdAt":"2024-05-01T12:00:00Z"}}}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}
}

func TestNotificationUnknownTypeIsGeneric(t *testing.T) {
	n := FromNotification(&model.Notification{ID: "n1", Type: "wallet_topup"})
	if n.Category != model.CategoryGeneric || n.Type != "wallet_topup" {
		t.Fatalf("got type=%q category=%q", n.Type, n.Category)
	}
}
