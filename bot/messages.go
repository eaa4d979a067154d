package bot

import (
	"fmt"
	"strings"

	"contestbot/models"
)

// Callback identifiers carried in inline keyboard buttons
const (
	callbackVerifySubscription       = "verify_subscription"
	callbackVerifyDirectSubscription = "verify_direct_subscription"
	callbackShowStats                = "show_stats"
	callbackShareLink                = "share_link"
	callbackBackToMain               = "back_to_main"
)

func referralLink(botUsername, referralCode string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, referralCode)
}

// prizeText lists the full prize ladder, first place from the contest
// configuration and fixed runner-up bonuses
func prizeText(contest *models.Contest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Prize: %s\n", contest.PrizeDescription)
	b.WriteString("🥈 2nd place → 50€ bonus\n")
	b.WriteString("🥉 3rd place → 25€ bonus\n")
	b.WriteString("4️⃣ 4th place → 15€ bonus\n")
	b.WriteString("5️⃣ 5th place → 10€ bonus")
	return b.String()
}

func scheduledText(contest *models.Contest) string {
	var b strings.Builder
	b.WriteString("⏰ The contest has not started yet\n\n")
	fmt.Fprintf(&b, "📅 Starts: %s\n\n", contest.StartDate.Format("2006-01-02 at 15:04 MST"))
	b.WriteString(prizeText(contest))
	b.WriteString("\n\nCome back when the contest is live!")
	return b.String()
}

func welcomeBackText(contest *models.Contest, user *models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 Welcome back to the %s contest! 🎉\n\n", contest.Name)
	b.WriteString("📜 The rules are simple: whoever brings the most subscribers to the channel wins!\n\n")
	b.WriteString(prizeText(contest))
	fmt.Fprintf(&b, "\n💥 People invited: %d\n\n", user.TotalInvites)
	b.WriteString("👉 Share your invite link with the button below and may the best win! 🚀")
	return b.String()
}

func registeredText(contest *models.Contest) string {
	var b strings.Builder
	b.WriteString("🎉 Welcome to the contest! 🎉\n\n")
	fmt.Fprintf(&b, "✅ You are now registered for %s\n\n", contest.Name)
	b.WriteString("📜 The rules are simple: whoever brings the most subscribers to the channel wins!\n\n")
	b.WriteString(prizeText(contest))
	b.WriteString("\n\n👉 Share your invite link with the button below and may the best win! 🚀")
	return b.String()
}

// finalResultsText is the phase-gated standings message once results are
// announced: winner, top five and everyone else get their own variant
func finalResultsText(contest *models.Contest, user *models.User) string {
	position := 0
	if user.FinalPosition != nil {
		position = *user.FinalPosition
	}

	var b strings.Builder
	switch {
	case position == 1:
		b.WriteString("🥇 CONGRATULATIONS! YOU ARE THE WINNER!\n\n")
		fmt.Fprintf(&b, "🎉 You won the %s contest!\n\n", contest.Name)
		fmt.Fprintf(&b, "💥 Your valid invites: %d\n", user.TotalInvites)
		b.WriteString("🏆 Position: #1\n\n")
		fmt.Fprintf(&b, "🎁 You won: %s\n\n", contest.PrizeDescription)
		b.WriteString("We will contact you shortly to arrange your prize!")
	case position >= 2 && position <= 5:
		medals := map[int]string{2: "🥈", 3: "🥉", 4: "🏅", 5: "🌟"}
		fmt.Fprintf(&b, "%s WELL DONE! YOU ARE IN THE TOP 5!\n\n", medals[position])
		fmt.Fprintf(&b, "🎉 An amazing run in the %s contest!\n\n", contest.Name)
		fmt.Fprintf(&b, "💥 Your valid invites: %d\n", user.TotalInvites)
		fmt.Fprintf(&b, "🏆 Position: #%d\n\n", position)
		b.WriteString("An exceptional result, you made the top 5!")
	default:
		b.WriteString("📊 FINAL RESULTS\n\n")
		fmt.Fprintf(&b, "💥 Your valid invites: %d\n\n", user.TotalInvites)
		if position > 0 {
			fmt.Fprintf(&b, "🏆 Your position: #%d\n\n", position)
		}
		fmt.Fprintf(&b, "The %s contest is over.\nThanks for taking part!", contest.Name)
	}
	return b.String()
}

func liveStatsText(contest *models.Contest, user *models.User, botUsername string) string {
	var b strings.Builder
	b.WriteString("📊 *YOUR STATISTICS*\n\n")
	fmt.Fprintf(&b, "💥 People invited: %d\n\n", user.TotalInvites)
	fmt.Fprintf(&b, "🔗 Your referral link:\n`%s`\n\n", referralLink(botUsername, user.ReferralCode))
	b.WriteString(prizeText(contest))
	return b.String()
}

func shareInstructionsText() string {
	var b strings.Builder
	b.WriteString("📢 *SHARE YOUR LINK*\n\n")
	b.WriteString("The next message contains your ready-made invite link.\n\n")
	b.WriteString("📱 *How to:*\n")
	b.WriteString("1️⃣ Long-press the message below\n")
	b.WriteString("2️⃣ Tap 'Copy'\n")
	b.WriteString("3️⃣ Paste it on WhatsApp, Instagram, Facebook or anywhere you like!")
	return b.String()
}

func shareMessageText(contest *models.Contest, user *models.User, botUsername string) string {
	return fmt.Sprintf(
		"🎉 Join the %s contest and win %s!\n\nUse my link to take part:\n%s\n\nDon't miss out!",
		contest.Name, contest.PrizeDescription, referralLink(botUsername, user.ReferralCode))
}

func contestOverMenuText(contest *models.Contest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏁 The %s contest is over\n\n", contest.Name)
	b.WriteString(prizeText(contest))
	b.WriteString("\n\nThanks for taking part!")
	return b.String()
}

func resultsAnnouncementText(contest *models.Contest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏁 The %s contest is over!\n\n", contest.Name)
	b.WriteString("🏆 The results are now available.\n\n")
	b.WriteString("Use the button below to see your final position:")
	return b.String()
}
