package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/campusconnect/internal/app"
	"github.com/shinyyama/campusconnect/internal/auth"
	"github.com/shinyyama/campusconnect/internal/config"
	"github.com/shinyyama/campusconnect/internal/logging"
	"github.com/shinyyama/campusconnect/internal/model"
	"github.com/shinyyama/campusconnect/internal/queue"
	"github.com/shinyyama/campusconnect/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() (err error) {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(logging.Config{Service: "campusconnect-seed", Env: cfg.AppEnv, Level: cfg.LogLevel})

	userA := envOr("SEED_USER_A", "demo-alice")
	userB := envOr("SEED_USER_B", "demo-bob")

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stores.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	convs := service.NewConversationService(stores.Conversations, nil, nil, logger, nil)
	notes := service.NewNotificationService(stores.Notifications, queue.NewMemory(1, 1, logger), nil, logger, nil)

	lines := []struct{ from, to, text string }{
		{userA, userB, "Hi! Is the desk lamp still available?"},
		{userB, userA, "Yes, you can pick it up after class."},
		{userA, userB, "Great, see you at 4."},
	}
	var convID string
	for _, l := range lines {
		msg, err := convs.Send(ctx, l.from, service.SendInput{ConversationID: convID, RecipientID: l.to, Text: l.text})
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		convID = msg.ConversationID
	}
	log.Printf("seeded conversation %s with %d messages", convID, len(lines))

	requests := []service.NotifyRequest{
		{UserID: userB, Type: model.NotifyChatMessage, Title: "New message", Message: "You have a new message", RelatedItemID: convID, RelatedKind: model.RelatedChat, FromUserID: userA},
		{UserID: userB, Type: model.NotifyReuseItRequest, Title: "New request", Message: "Someone asked for your desk lamp", FromUserID: userA},
		{UserID: userA, Type: model.NotifyMentorshipConfirmed, Title: "Session confirmed", Message: "Your mentorship session is confirmed"},
	}
	for _, r := range requests {
		if _, err := notes.Deliver(ctx, r); err != nil {
			return fmt.Errorf("deliver notification: %w", err)
		}
	}
	log.Printf("seeded %d notifications", len(requests))

	if cfg.AuthProvider == config.AuthJWT {
		signer := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTLeeway)
		for _, uid := range []string{userA, userB} {
			token, err := signer.Sign(uid, "student", 24*time.Hour)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Printf("%s\t%s\n", uid, token)
		}
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
