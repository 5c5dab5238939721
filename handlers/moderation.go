package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"sentinel-bot/bot"
	"sentinel-bot/infractions"
	"sentinel-bot/model"
	"sentinel-bot/utils"
)

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// HandleApplyCommand runs a moderation command that creates an
// infraction of the given type.
func HandleApplyCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, typ model.InfractionType) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Error deferring response: %v", err)
		return
	}

	opts := optionMap(i)
	target := opts["user"].UserValue(s)
	if target == nil {
		utils.SendFollowUpError(s, i.Interaction, "Could not resolve the target user.")
		return
	}

	req := infractions.ApplyRequest{
		GuildID:  i.GuildID,
		UserID:   target.ID,
		UserName: target.Username,
		ActorID:  i.Member.User.ID,
		Type:     typ,
	}
	if opt, ok := opts["reason"]; ok {
		req.Reason = opt.StringValue()
	}
	if req.Reason == "" {
		req.Reason = "No reason given"
	}
	if opt, ok := opts["hidden"]; ok {
		req.Hidden = opt.BoolValue()
	}
	if opt, ok := opts["purge_days"]; ok {
		req.PurgeDays = int(opt.IntValue())
		if req.PurgeDays < 0 || req.PurgeDays > 7 {
			utils.SendFollowUpError(s, i.Interaction, "purge_days must be between 0 and 7.")
			return
		}
	}
	if opt, ok := opts["duration"]; ok {
		d, err := utils.ParseDuration(opt.StringValue())
		if err != nil {
			utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("Invalid duration %q. Use forms like 30m, 12h, 7d.", opt.StringValue()))
			return
		}
		expiresAt := time.Now().Add(d)
		req.ExpiresAt = &expiresAt
	}

	result, err := b.Engine.Apply(context.Background(), req)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, applyErrorMessage(err))
		return
	}

	msg := fmt.Sprintf("✅ Applied **%s** #%d to <@%s>.", typ, result.Infraction.ID, target.ID)
	if result.Infraction.ExpiresAt != nil {
		msg += fmt.Sprintf(" Expires <t:%d:R>.", result.Infraction.ExpiresAt.Unix())
	}
	for _, note := range result.Notes {
		msg += "\n⚠️ " + note
	}
	utils.SendFollowUp(s, i.Interaction, msg)
}

func applyErrorMessage(err error) string {
	var conflict *infractions.ConflictError
	var hierarchy *infractions.HierarchyError
	var applyFailed *infractions.ApplyFailedError
	switch {
	case errors.As(err, &conflict):
		return fmt.Sprintf("The user already has an active %s (#%d). Pardon it first.", conflict.Type, conflict.ExistingID)
	case errors.As(err, &hierarchy):
		return "I cannot act on that user: their top role is equal to or above mine."
	case errors.Is(err, infractions.ErrDurationNotAllowed):
		return "That infraction type does not accept a duration."
	case errors.Is(err, infractions.ErrNotifyRequired):
		return "The user could not be notified, and this infraction requires notification. Nothing was applied."
	case errors.As(err, &applyFailed):
		return "The infraction could not be applied and has been rolled back. Check my permissions."
	default:
		log.Printf("Infraction apply failed: %v", err)
		return "Something went wrong applying the infraction."
	}
}

// HandlePardonCommand ends a user's active infraction of a given type.
func HandlePardonCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Error deferring response: %v", err)
		return
	}

	opts := optionMap(i)
	target := opts["user"].UserValue(s)
	typ := model.InfractionType(opts["type"].StringValue())
	reason := ""
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}

	inf, err := b.Engine.Pardon(context.Background(), typ, target.ID, reason)
	if err != nil {
		if errors.Is(err, infractions.ErrNoActiveInfraction) {
			utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("<@%s> has no active %s.", target.ID, typ))
			return
		}
		log.Printf("Pardon failed: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Something went wrong pardoning the infraction.")
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ Pardoned **%s** #%d for <@%s>.", inf.Type, inf.ID, target.ID))
}

// HandleEditCommand changes the reason or expiry of an infraction.
func HandleEditCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Error deferring response: %v", err)
		return
	}

	opts := optionMap(i)
	id := opts["id"].IntValue()

	var newReason *string
	if opt, ok := opts["reason"]; ok {
		r := opt.StringValue()
		newReason = &r
	}
	var newExpiry *time.Time
	if opt, ok := opts["duration"]; ok {
		d, err := utils.ParseDuration(opt.StringValue())
		if err != nil {
			utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("Invalid duration %q. Use forms like 30m, 12h, 7d.", opt.StringValue()))
			return
		}
		t := time.Now().Add(d)
		newExpiry = &t
	}
	if newReason == nil && newExpiry == nil {
		utils.SendFollowUpError(s, i.Interaction, "Give a new duration, a new reason, or both.")
		return
	}

	inf, err := b.Engine.EditExpiry(context.Background(), id, newReason, newExpiry)
	if err != nil {
		switch {
		case errors.Is(err, infractions.ErrAlreadyInactive):
			utils.SendFollowUpError(s, i.Interaction, "That infraction is no longer active.")
		case errors.Is(err, infractions.ErrDurationNotAllowed):
			utils.SendFollowUpError(s, i.Interaction, "That infraction type does not accept a duration.")
		default:
			log.Printf("Infraction edit failed: %v", err)
			utils.SendFollowUpError(s, i.Interaction, "Something went wrong editing the infraction.")
		}
		return
	}

	msg := fmt.Sprintf("✅ Updated infraction #%d.", inf.ID)
	if inf.ExpiresAt != nil {
		msg += fmt.Sprintf(" Now expires <t:%d:R>.", inf.ExpiresAt.Unix())
	}
	utils.SendFollowUp(s, i.Interaction, msg)
}

// HandleSearchCommand lists a user's infractions in an embed.
func HandleSearchCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Error deferring response: %v", err)
		return
	}

	opts := optionMap(i)
	target := opts["user"].UserValue(s)
	activeOnly := false
	if opt, ok := opts["active_only"]; ok {
		activeOnly = opt.BoolValue()
	}

	records, err := b.Engine.Search(context.Background(), target.ID, activeOnly)
	if err != nil {
		log.Printf("Infraction search failed: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Something went wrong fetching infractions.")
		return
	}
	if len(records) == 0 {
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("<@%s> has no recorded infractions.", target.ID))
		return
	}

	lines := make([]string, 0, len(records))
	for _, inf := range records {
		line := fmt.Sprintf("`#%d` **%s** by <@%s> — %s", inf.ID, inf.Type, inf.ActorID, inf.Reason)
		switch {
		case !inf.Active:
			line += " *(inactive)*"
		case inf.ExpiresAt != nil:
			line += fmt.Sprintf(" *(expires <t:%d:R>)*", inf.ExpiresAt.Unix())
		}
		lines = append(lines, line)
	}

	utils.SendFollowUpEmbed(s, i.Interaction, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Infractions for %s", target.Username),
		Description: strings.Join(lines, "\n"),
		Color:       3447003,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d record(s)", len(records)),
		},
	})
}
