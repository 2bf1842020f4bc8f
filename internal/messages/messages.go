// Package messages builds the Block Kit bodies the bot sends: plain replies,
// help, the setup form, the weekly mood question and its acknowledgment.
// Every function is pure and never fails.
package messages

import (
	"strconv"

	"github.com/slack-go/slack"
)

const (
	ActionSubmit         = "x-submit"
	ActionCancel         = "x-cancel"
	FeedbackActionPrefix = "feedback-"

	// UsersSelectAction is the action id of both multi-user pickers of the
	// setup form; the block id tells them apart.
	UsersSelectAction = "multi_users_select-action"

	MembersBlock        = "members"
	AdministratorsBlock = "administrators"

	maxSelectedUsers = 10
)

const (
	HelpText = "👩‍🎓 Hi! I'm TeamLab Bot. I'm going to help you to track the pulse of your team mood.\n\n" +
		"*Available commands:*\n\n*setup* - Setup me\n*status* - Check my status\n*help* - Show this help message"
	UnknownCommandText = "🤷‍♀️ I don't know this command. Please use `/moodlab help` to see available commands."
	CancelText         = "👍 No worries, you can always do it later"
	SetupInvalidText   = "⚠️ You need to specify at least one member and one administrator"
	SetupSavedText     = "🎉 Great job! You are ready to go.\nYour team members will be receiving questions every week ✨\n"
	SetupFailedText    = "😓 I couldn't save the configuration. Please try again in a moment."
	FeedbackThanksText = "Thank you for feedback!"
	FeedbackFailedText = "😓 I couldn't record your answer. Please try again in a moment."

	setupIntroText = "Hello! 👋 \nWelcome to MoodLab Bot! I'm going to check pulse of your team by asking your " +
		"team members how do they feel. Please provide required configuration to start."
	questionText = "Hi there 👋\n How was the week?"
)

// Mood is one answer option of the weekly question.
type Mood struct {
	Label string
	Value int
}

// Moods are the answer options in display order. The button of Moods[i] has
// action id "feedback-<i>".
var Moods = []Mood{
	{Label: "😥 Bad", Value: -2},
	{Label: "😔 Not so good", Value: -1},
	{Label: "😐 Ok", Value: 0},
	{Label: "🙂 Good", Value: 1},
	{Label: "🤩 Awesome", Value: 2},
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}

// Text wraps a markdown string into a single section reply visible to the
// channel.
func Text(text string) slack.Msg {
	return slack.Msg{
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
		}},
		ResponseType: slack.ResponseTypeInChannel,
	}
}

func Help() slack.Msg {
	return Text(HelpText)
}

func UnknownCommand() slack.Msg {
	return Text(UnknownCommandText)
}

// Setup renders the configuration form with the given users pre-selected.
func Setup(members, administrators []string) slack.Msg {
	return slack.Msg{
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, setupIntroText, false, false), nil, nil),
			usersInput(MembersBlock, "Members", members),
			slack.NewContextBlock("", plain("They are going to receive questions every Friday 🙌")),
			usersInput(AdministratorsBlock, "Administrators", administrators),
			slack.NewContextBlock("", plain("They are going to have access to analytics and reports 📈")),
			slack.NewActionBlock("",
				slack.NewButtonBlockElement(ActionSubmit, "click_submit", plain("Let's go!")).WithStyle(slack.StylePrimary),
				slack.NewButtonBlockElement(ActionCancel, "click_cancel", plain("Cancel")),
			),
		}},
		ResponseType: slack.ResponseTypeInChannel,
	}
}

func usersInput(blockID, label string, selected []string) *slack.InputBlock {
	picker := slack.NewOptionsMultiSelectBlockElement(slack.MultiOptTypeUser, plain("Select users"), UsersSelectAction)
	picker.InitialUsers = append([]string{}, selected...)
	maxItems := maxSelectedUsers
	picker.MaxSelectedItems = &maxItems
	return slack.NewInputBlock(blockID, plain(label), nil, picker)
}

// WeeklyQuestion is the mood question sent to every member.
func WeeklyQuestion() []slack.Block {
	buttons := make([]slack.BlockElement, 0, len(Moods))
	for i, mood := range Moods {
		buttons = append(buttons, slack.NewButtonBlockElement(
			FeedbackActionPrefix+strconv.Itoa(i),
			strconv.Itoa(mood.Value),
			plain(mood.Label),
		))
	}
	return []slack.Block{
		slack.NewSectionBlock(plain(questionText), nil, nil),
		slack.NewActionBlock("", buttons...),
	}
}

// FeedbackReceived thanks the user and echoes the chosen option.
func FeedbackReceived(label string) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(plain(FeedbackThanksText), nil, nil),
		slack.NewActionBlock("", slack.NewButtonBlockElement("", "", plain(label))),
	}
}
