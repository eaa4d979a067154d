package bot

import (
	"context"
	"sync"

	"contestbot/config"
	"contestbot/events"
	"contestbot/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Bot handles all Telegram interactions: commands, callback buttons and
// operator-facing event notifications
type Bot struct {
	api       *tgbotapi.BotAPI
	cfg       *config.Config
	transport *Transport

	contests     service.ContestService
	referrals    service.ReferralService
	verification service.VerificationService
	broadcast    service.BroadcastService

	shares *shareCache
	wg     sync.WaitGroup
}

// New creates the bot on an already authorized Telegram API client
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	transport *Transport,
	contests service.ContestService,
	referrals service.ReferralService,
	verification service.VerificationService,
	broadcast service.BroadcastService,
	eventBus *events.Bus,
) *Bot {
	b := &Bot{
		api:          api,
		cfg:          cfg,
		transport:    transport,
		contests:     contests,
		referrals:    referrals,
		verification: verification,
		broadcast:    broadcast,
		shares:       newShareCache(),
	}
	b.subscribeToEvents(eventBus)
	return b
}

// Start begins long-polling for updates. Each update is handled in its own
// goroutine so a slow membership check never stalls other users.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	log.WithField("username", b.api.Self.UserName).Info("Bot started, polling for updates")

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				b.wg.Add(1)
				go func(update tgbotapi.Update) {
					defer b.wg.Done()
					defer func() {
						if r := recover(); r != nil {
							log.Errorf("Update handler panicked: %v", r)
						}
					}()
					b.handleUpdate(ctx, update)
				}(update)
			}
		}
	}()
}

// Stop halts polling and waits for in-flight handlers
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	b.wg.Wait()
	log.Info("Bot stopped")
}

func (b *Bot) subscribeToEvents(bus *events.Bus) {
	bus.Subscribe(events.EventTypeContestStateChange, func(ctx context.Context, e events.Event) {
		ev, ok := e.(events.ContestStateChangeEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"contestID": ev.ContestID,
			"from":      ev.OldStatus,
			"to":        ev.NewStatus,
		}).Info("Contest state changed")
	})

	bus.Subscribe(events.EventTypeUserRegistered, func(ctx context.Context, e events.Event) {
		ev, ok := e.(events.UserRegisteredEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"telegramID": ev.TelegramID,
			"referred":   ev.ReferredBy != nil,
		}).Debug("User registered")
	})

	bus.Subscribe(events.EventTypeReferralCompleted, func(ctx context.Context, e events.Event) {
		ev, ok := e.(events.ReferralCompletedEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"referrer": ev.ReferrerTelegramID,
			"referred": ev.ReferredTelegramID,
		}).Debug("Referral completed")
	})
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "stats":
		b.handleStatsCommand(ctx, msg)
	case "admin_end_contest":
		b.handleAdminEndContest(ctx, msg)
	case "admin_announce_results":
		b.handleAdminAnnounceResults(ctx, msg)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Acknowledge immediately so the client stops its spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Errorf("Failed to answer callback query: %v", err)
	}

	switch query.Data {
	case callbackVerifySubscription:
		b.handleVerifySubscription(ctx, query)
	case callbackVerifyDirectSubscription:
		b.handleVerifyDirectSubscription(ctx, query)
	case callbackShowStats:
		b.handleShowStats(ctx, query)
	case callbackShareLink:
		b.handleShareLink(ctx, query)
	case callbackBackToMain:
		b.handleBackToMain(ctx, query)
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		log.Errorf("Failed to send message: %v", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}
