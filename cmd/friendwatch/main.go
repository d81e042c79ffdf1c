// Command friendwatch follows a user's pending friend requests from the
// terminal and logs a line for every new request and accepted friend.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"friendlink/backend/pkg/friendsync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type logNotifier struct {
	logger *zap.Logger
}

func (n logNotifier) CountChanged(count int64) {
	n.logger.Info("pending requests", zap.Int64("count", count))
}

func (n logNotifier) NewRequests(delta int64) {
	n.logger.Info("new friend requests", zap.Int64("new", delta))
}

func (n logNotifier) FriendAccepted(relationshipID string, friend friendsync.Friend) {
	n.logger.Info("friend request accepted",
		zap.String("relationship_id", relationshipID),
		zap.Uint("friend_id", friend.ID),
		zap.String("friend", friend.Name))
}

func main() {
	flags := pflag.NewFlagSet("friendwatch", pflag.ExitOnError)
	flags.String("url", "http://localhost:8080/api/v1", "API base URL")
	flags.String("token", "", "session token")
	flags.Duration("interval", friendsync.DefaultInterval, "minimum time between fetches")
	flags.Duration("poll", 30*time.Second, "how often to ask for a refresh")
	flags.Bool("debug", false, "verbose logging")
	_ = flags.Parse(os.Args[1:])

	v := viper.New()
	v.SetEnvPrefix("FRIENDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		log.Fatalf("flags: %v", err)
	}

	var logger *zap.Logger
	var err error
	if v.GetBool("debug") {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	token := v.GetString("token")
	if token == "" {
		logger.Fatal("a session token is required (--token or FRIENDWATCH_TOKEN)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := friendsync.NewClient(v.GetString("url"), token)
	syncer := friendsync.New(client.PendingCount, logNotifier{logger: logger},
		friendsync.WithInterval(v.GetDuration("interval")),
		friendsync.WithLogger(logger))
	defer syncer.Close()

	if err := syncer.Start(ctx); err != nil {
		logger.Fatal("initial fetch failed", zap.Error(err))
	}

	// Without a stream the periodic refresh keeps the count current.
	stream, err := client.Subscribe(ctx)
	if err != nil {
		logger.Warn("realtime unavailable, polling only", zap.Error(err))
	} else {
		syncer.Listen(stream)
	}

	ticker := time.NewTicker(v.GetDuration("poll"))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping")
			return
		case <-ticker.C:
			syncer.Refresh()
		}
	}
}
