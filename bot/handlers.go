package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contestbot/models"
	"contestbot/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

func menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 My statistics", callbackShowStats),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Share my link", callbackShareLink),
		),
	)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", callbackBackToMain),
		),
	)
}

func joinKeyboard(inviteLink string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 JOIN THE CHANNEL", inviteLink),
		),
	)
}

// verifyKeyboard pairs the channel link with the membership check button
func verifyKeyboard(inviteLink, verifyCallback string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 JOIN THE CHANNEL", inviteLink),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ TAKE PART", verifyCallback),
		),
	)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	contest, err := b.contests.GetCurrent(ctx)
	if errors.Is(err, service.ErrNotFound) {
		b.reply(chatID, "❌ No contest is configured right now.")
		return
	}
	if err != nil {
		log.Errorf("Failed to load contest for /start: %v", err)
		b.reply(chatID, "❌ Something went wrong, please try again.")
		return
	}

	switch {
	case contest.Status == models.ContestStatusScheduled:
		b.reply(chatID, scheduledText(contest))
		return
	case contest.Status == models.ContestStatusVerificationInProgress:
		b.reply(chatID, "🔄 Final verification is running. Results will be available soon.")
		return
	case contest.Status == models.ContestStatusCompleted && !contest.ResultsAnnounced:
		b.reply(chatID, "🏁 The contest is over. Please wait for the official results announcement.")
		return
	}

	user, err := b.referrals.GetUser(ctx, userID)
	if err != nil {
		log.Errorf("Failed to load user %d: %v", userID, err)
		b.reply(chatID, "❌ Something went wrong, please try again.")
		return
	}
	if user != nil {
		b.showExistingUser(ctx, chatID, contest, user)
		return
	}

	// Completed contests accept no new signups, referred or direct
	if contest.Status == models.ContestStatusCompleted {
		b.reply(chatID, "❌ The contest is over. Registration is closed.")
		return
	}

	if code := msg.CommandArguments(); code != "" {
		b.startReferredSignup(ctx, msg, contest, code)
		return
	}
	b.startDirectSignup(chatID, contest)
}

func (b *Bot) showExistingUser(ctx context.Context, chatID int64, contest *models.Contest, user *models.User) {
	if contest.Status == models.ContestStatusCompleted && contest.ResultsAnnounced {
		msg := tgbotapi.NewMessage(chatID, finalResultsText(contest, user))
		msg.ReplyMarkup = backKeyboard()
		b.send(msg)
		return
	}

	// An interrupted referred signup resumes where it left off
	pending, err := b.referrals.GetPendingReferral(ctx, user.TelegramID)
	if err != nil {
		log.Errorf("Failed to load pending referral for %d: %v", user.TelegramID, err)
	}
	if pending != nil {
		referrerName := "a friend"
		if referrer, err := b.referrals.GetUser(ctx, pending.ReferrerTelegramID); err == nil && referrer != nil {
			referrerName = referrer.FirstName
		}

		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"🎯 You have a pending invite from %s!\n\nJoin the channel to enter the contest.\n\nSubscribe first, then tap 'TAKE PART'", referrerName))
		msg.ReplyMarkup = verifyKeyboard(contest.ChannelInviteLink, callbackVerifySubscription)
		b.send(msg)
		return
	}

	msg := tgbotapi.NewMessage(chatID, welcomeBackText(contest, user))
	msg.ReplyMarkup = menuKeyboard()
	b.send(msg)
}

func (b *Bot) startReferredSignup(ctx context.Context, msg *tgbotapi.Message, contest *models.Contest, code string) {
	chatID := msg.Chat.ID

	referrer, err := b.referrals.GetUserByReferralCode(ctx, code)
	if err != nil {
		log.Errorf("Failed to resolve referral code %s: %v", code, err)
		b.reply(chatID, "❌ Something went wrong, please try again.")
		return
	}
	if referrer == nil {
		b.reply(chatID, "❌ Invalid invite link.")
		return
	}

	_, err = b.referrals.BeginReferredRegistration(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName, code)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateReferral) {
			b.reply(chatID, "❌ Invalid invite link.")
			return
		}
		log.Errorf("Failed to register referred user %d: %v", msg.From.ID, err)
		b.reply(chatID, "❌ Registration failed, please try again.")
		return
	}

	b.reply(chatID, fmt.Sprintf("🎯 You were invited by %s!\n\nTwo steps to enter the contest ⬇️", referrer.FirstName))
	b.sendJoinSteps(chatID, contest, callbackVerifySubscription)
}

func (b *Bot) startDirectSignup(chatID int64, contest *models.Contest) {
	b.reply(chatID, fmt.Sprintf("🎉 Welcome to the %s contest!\n\nTwo steps to enter ⬇️", contest.Name))
	b.sendJoinSteps(chatID, contest, callbackVerifyDirectSubscription)
}

// sendJoinSteps sends the two-step join instructions: channel link, then the
// membership check button
func (b *Bot) sendJoinSteps(chatID int64, contest *models.Contest, verifyCallback string) {
	step1 := tgbotapi.NewMessage(chatID, "1️⃣ JOIN THE TELEGRAM CHANNEL\n\n(once subscribed, tap the back arrow ⬅️ to return here)")
	step1.ReplyMarkup = joinKeyboard(contest.ChannelInviteLink)
	b.send(step1)

	step2 := tgbotapi.NewMessage(chatID, "2️⃣ TAP HERE TO ENTER THE CONTEST ⬇️")
	step2.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ TAKE PART", verifyCallback),
		),
	)
	b.send(step2)
}

func (b *Bot) handleVerifySubscription(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	userID := query.From.ID

	contest, err := b.contests.GetCurrent(ctx)
	if err != nil || contest.Status != models.ContestStatusActive {
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "🔄 The contest is over. Signups can no longer be completed."))
		return
	}

	member, err := b.transport.IsChannelMember(ctx, contest.ChannelID, userID)
	if err != nil {
		log.Errorf("Membership check failed for %d: %v", userID, err)
		retry := tgbotapi.NewMessage(chatID, "❌ Verification failed. Join the channel and try again:")
		retry.ReplyMarkup = verifyKeyboard(contest.ChannelInviteLink, callbackVerifySubscription)
		b.send(retry)
		return
	}

	if !member {
		b.sendNotSubscribed(chatID, messageID, contest, callbackVerifySubscription)
		return
	}

	pending, err := b.referrals.GetPendingReferral(ctx, userID)
	if err != nil || pending == nil {
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "❌ No pending invite found. Use /start to begin."))
		return
	}

	if err := b.referrals.CompleteReferral(ctx, pending.ReferrerTelegramID, userID); err != nil {
		log.Errorf("Failed to complete referral for %d: %v", userID, err)
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "❌ Could not complete your signup. Please contact support."))
		return
	}

	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, registeredText(contest), menuKeyboard()))
}

func (b *Bot) handleVerifyDirectSubscription(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	userID := query.From.ID

	contest, err := b.contests.GetCurrent(ctx)
	if err != nil || contest.Status != models.ContestStatusActive {
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "🔄 The contest is over. Signups can no longer be completed."))
		return
	}

	member, err := b.transport.IsChannelMember(ctx, contest.ChannelID, userID)
	if err != nil {
		log.Errorf("Membership check failed for %d: %v", userID, err)
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "❌ Verification failed. Please try again."))
		return
	}

	if !member {
		b.sendNotSubscribed(chatID, messageID, contest, callbackVerifyDirectSubscription)
		return
	}

	_, err = b.referrals.RegisterUser(ctx, userID, query.From.UserName, query.From.FirstName)
	if err != nil && !errors.Is(err, service.ErrUserExists) {
		log.Errorf("Failed to register direct user %d: %v", userID, err)
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "❌ Registration failed. Please try again."))
		return
	}

	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, registeredText(contest), menuKeyboard()))
}

// sendNotSubscribed edits in a retry prompt. The trailing suffix changes on
// every attempt, otherwise Telegram rejects the edit as a no-op.
func (b *Bot) sendNotSubscribed(chatID int64, messageID int, contest *models.Contest, verifyCallback string) {
	suffix := time.Now().Unix() % 100
	text := fmt.Sprintf("❌ You are not subscribed to the channel.\n\nJoin it before continuing. [%02d]", suffix)
	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, verifyKeyboard(contest.ChannelInviteLink, verifyCallback)))
}

func (b *Bot) handleShowStats(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	text, markup, ok := b.statsView(ctx, query.From.ID)
	if !ok {
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, text))
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)
}

// handleStatsCommand is the textual fallback for the stats button
func (b *Bot) handleStatsCommand(ctx context.Context, msg *tgbotapi.Message) {
	text, markup, ok := b.statsView(ctx, msg.From.ID)
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if ok {
		reply.ReplyMarkup = markup
		reply.ParseMode = tgbotapi.ModeMarkdown
	}
	b.send(reply)
}

// statsView builds the phase-gated statistics message. ok is false when the
// result is a plain error text without a keyboard.
func (b *Bot) statsView(ctx context.Context, userID int64) (string, tgbotapi.InlineKeyboardMarkup, bool) {
	var none tgbotapi.InlineKeyboardMarkup

	user, err := b.referrals.GetUser(ctx, userID)
	if err != nil || user == nil {
		return "❌ You are not registered. Use /start to sign up.", none, false
	}

	contest, err := b.contests.GetCurrent(ctx)
	if err != nil {
		return "❌ No contest is configured right now.", none, false
	}

	switch {
	case contest.Status == models.ContestStatusVerificationInProgress:
		return "🔄 Final verification is running...\n\nResults will be available soon.", backKeyboard(), true
	case contest.Status == models.ContestStatusCompleted && !contest.ResultsAnnounced:
		return "🏁 The contest is over.\n\nPlease wait for the official results announcement.", backKeyboard(), true
	case contest.Status == models.ContestStatusCompleted:
		return finalResultsText(contest, user), backKeyboard(), true
	default:
		return liveStatsText(contest, user, b.api.Self.UserName), backKeyboard(), true
	}
}

func (b *Bot) handleShareLink(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	userID := query.From.ID

	user, err := b.referrals.GetUser(ctx, userID)
	if err != nil || user == nil {
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "❌ You are not registered. Use /start to sign up."))
		return
	}

	contest, err := b.contests.GetCurrent(ctx)
	if err != nil {
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "❌ No contest is configured right now."))
		return
	}

	// Drop a previously sent copyable message so they don't pile up
	if prevID, ok := b.shares.Take(userID); ok {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, prevID)); err != nil {
			log.Debugf("Failed to delete previous share message for %d: %v", userID, err)
		}
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, shareInstructionsText(), backKeyboard())
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)

	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, shareMessageText(contest, user, b.api.Self.UserName)))
	if err != nil {
		log.Errorf("Failed to send share message to %d: %v", userID, err)
		return
	}
	b.shares.Put(userID, sent.MessageID)
}

func (b *Bot) handleBackToMain(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	userID := query.From.ID

	// Consume the cached share message when leaving the share screen
	if shareID, ok := b.shares.Take(userID); ok {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, shareID)); err != nil {
			log.Debugf("Failed to delete share message for %d: %v", userID, err)
		}
	}

	user, err := b.referrals.GetUser(ctx, userID)
	if err != nil || user == nil {
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "❌ You are not registered. Use /start to sign up."))
		return
	}

	contest, err := b.contests.GetCurrent(ctx)
	if err != nil {
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "❌ No contest is configured right now."))
		return
	}

	if contest.Status == models.ContestStatusCompleted {
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📊 My statistics", callbackShowStats),
			),
		)
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, contestOverMenuText(contest), markup))
		return
	}

	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, welcomeBackText(contest, user), menuKeyboard()))
}

func (b *Bot) handleAdminEndContest(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !b.cfg.IsAdmin(msg.From.ID) {
		b.reply(chatID, "❌ Only admins can use this command")
		return
	}

	err := b.contests.ForceBeginVerification(ctx)
	switch {
	case errors.Is(err, service.ErrWrongContestStatus), errors.Is(err, service.ErrNotFound):
		b.reply(chatID, "❌ No active contest to end")
		return
	case err != nil:
		log.Errorf("Failed to start verification: %v", err)
		b.reply(chatID, "❌ Could not start the final verification")
		return
	}

	b.reply(chatID, "🔍 Final verification started manually...")

	// The pass can take a while with many referrals; run it off the handler
	go func() {
		if _, err := b.verification.Run(context.Background()); err != nil {
			log.Errorf("Verification pass failed: %v", err)
		}
	}()
}

func (b *Bot) handleAdminAnnounceResults(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !b.cfg.IsAdmin(msg.From.ID) {
		b.reply(chatID, "❌ Only admins can use this command")
		return
	}

	contest, err := b.contests.AnnounceResults(ctx)
	switch {
	case errors.Is(err, service.ErrAlreadyAnnounced):
		b.reply(chatID, "ℹ️ Results already announced")
		return
	case errors.Is(err, service.ErrWrongContestStatus), errors.Is(err, service.ErrNotFound):
		b.reply(chatID, "❌ The contest is not completed yet")
		return
	case err != nil:
		log.Errorf("Failed to announce results: %v", err)
		b.reply(chatID, "❌ Could not announce the results")
		return
	}

	b.reply(chatID, "✅ Results announced! Starting broadcast...")

	go func() {
		if _, err := b.broadcast.BroadcastResults(context.Background(), contest); err != nil {
			log.Errorf("Results broadcast failed: %v", err)
		}
	}()
}
