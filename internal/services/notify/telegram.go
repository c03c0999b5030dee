package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type MatchSender interface {
	SendMatchMessage(ctx context.Context, chatID int64, partnerName, openURL string) error
}

type NameResolver interface {
	GetDisplayName(ctx context.Context, userID int64) (string, error)
}

// TelegramNotifier pushes "it's a match" messages to both sides of a
// fresh match. User ids double as Telegram chat ids; the deep link
// opens the shared channel in the app.
type TelegramNotifier struct {
	sender   MatchSender
	names    NameResolver
	linkBase string
	logger   *zap.Logger
}

func NewTelegramNotifier(sender MatchSender, names NameResolver, linkBase string, logger *zap.Logger) *TelegramNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TelegramNotifier{
		sender:   sender,
		names:    names,
		linkBase: strings.TrimRight(linkBase, "/"),
		logger:   logger,
	}
}

// NotifyMatch fans out to both participants. Each send is independent
// and best-effort; the first failure is returned so the caller can log
// it, but one side failing never blocks the other.
func (n *TelegramNotifier) NotifyMatch(ctx context.Context, userID, partnerUserID int64, channelID string) error {
	if n.sender == nil {
		return nil
	}

	openURL := ""
	if n.linkBase != "" {
		openURL = n.linkBase + "/" + channelID
	}

	var firstErr error
	if err := n.sender.SendMatchMessage(ctx, userID, n.displayName(ctx, partnerUserID), openURL); err != nil {
		firstErr = fmt.Errorf("notify user %d: %w", userID, err)
	}
	if err := n.sender.SendMatchMessage(ctx, partnerUserID, n.displayName(ctx, userID), openURL); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("notify user %d: %w", partnerUserID, err)
	}

	return firstErr
}

func (n *TelegramNotifier) displayName(ctx context.Context, userID int64) string {
	if n.names == nil {
		return ""
	}

	name, err := n.names.GetDisplayName(ctx, userID)
	if err != nil {
		n.logger.Debug("notify: display name lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return ""
	}
	return name
}
