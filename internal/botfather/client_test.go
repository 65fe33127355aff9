package botfather

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfleet/internal/domain/entity"
)

const demoToken = "7123456789:AAHdemoFleetTokenValue_0123456789ab"

func TestCreateWithInlineToken(t *testing.T) {
	conv := &fakeConv{
		onText: scriptedReplies(map[string][]*entity.Reply{
			"/newbot":       {textReply("Alright, a new bot. How are we going to call it?")},
			"Demo Fleet":    {textReply("Good. Now let's choose a username for your bot.")},
			"@demofleetbot": {textReply("Done! Congratulations on your new bot. Use this token to access the HTTP API:\n" + demoToken)},
		}),
	}
	c, d := newTestClient(conv)

	ok, token, report := c.Create(context.Background(), "Demo Fleet", "demofleetbot")
	require.True(t, ok, report)
	assert.Equal(t, demoToken, token)
	assert.Contains(t, report, "@demofleetbot")
	assert.Contains(t, report, demoToken)

	// токен пришёл сразу — дополнительных ходов за ним не было
	assert.Zero(t, conv.sentCount("/token"))
	assert.Equal(t, 1, d.dials)
}

func TestCreateFetchesTokenSeparately(t *testing.T) {
	conv := &fakeConv{
		onText: scriptedReplies(map[string][]*entity.Reply{
			"/newbot":    {textReply("Alright, a new bot. How are we going to call it?")},
			"Demo Fleet": {textReply("Good. Now let's choose a username for your bot.")},
			"@demofleetbot": {
				textReply("Done! Congratulations on your new bot. You will find it at t.me/demofleetbot."),
				textReply("You can use this token:\n" + demoToken),
			},
			"/token": {textReply("Choose a bot to generate a new token.")},
		}),
	}
	c, _ := newTestClient(conv)

	ok, token, report := c.Create(context.Background(), "Demo Fleet", "demofleetbot")
	require.True(t, ok, report)
	assert.Equal(t, demoToken, token)
	assert.Equal(t, 1, conv.sentCount("/token"))
}

func TestCreateRejectedUsername(t *testing.T) {
	conv := &fakeConv{
		onText: scriptedReplies(map[string][]*entity.Reply{
			"/newbot":       {textReply("Alright, a new bot. How are we going to call it?")},
			"Demo Fleet":    {textReply("Good. Now let's choose a username for your bot.")},
			"@demofleetbot": {textReply("Sorry, this username is already taken.")},
		}),
	}
	c, _ := newTestClient(conv)

	ok, token, report := c.Create(context.Background(), "Demo Fleet", "demofleetbot")
	assert.False(t, ok)
	assert.Empty(t, token)
	// подсказка с вариантами замены суффикса
	assert.Contains(t, report, "@demofleetAppBot")
	// отказ не прячет диалог
	assert.Contains(t, report, "already taken")
}

func TestCreateInvalidHandleAbortsLocally(t *testing.T) {
	conv := &fakeConv{}
	c, d := newTestClient(conv)

	ok, token, report := c.Create(context.Background(), "Demo", "ab")
	assert.False(t, ok)
	assert.Empty(t, token)
	assert.Contains(t, report, "не пройдёт проверку")

	// ни одного удалённого хода
	assert.Zero(t, d.dials)
	assert.Empty(t, conv.sent)
}

func TestTokenOperation(t *testing.T) {
	conv := &fakeConv{
		onText: scriptedReplies(map[string][]*entity.Reply{
			"/token":        {textReply("Choose a bot to generate a new token.")},
			"@demofleetbot": {textReply("You can use this token:\n" + demoToken)},
		}),
	}
	c, _ := newTestClient(conv)

	ok, token, report := c.Token(context.Background(), "demofleetbot")
	require.True(t, ok, report)
	assert.Equal(t, demoToken, token)
	assert.Contains(t, report, demoToken)
}

func TestSetAboutTruncatesToLimit(t *testing.T) {
	long := make([]rune, entity.AboutMaxLen+40)
	for i := range long {
		long[i] = 'ы'
	}

	var sentValue string
	conv := &fakeConv{}
	conv.onText = func(text string) *entity.Reply {
		switch text {
		case "/start", "/cancel":
			return nil
		case "/setabouttext":
			return textReply("Choose a bot to change the about section.")
		case "@demofleetbot":
			return textReply("OK. Send me the new 'About' text.")
		default:
			sentValue = text
			return textReply("Success! About section updated.")
		}
	}
	c, _ := newTestClient(conv)

	ok, report := c.SetAbout(context.Background(), "demofleetbot", string(long))
	require.True(t, ok, report)
	assert.Equal(t, entity.AboutMaxLen, len([]rune(sentValue)))
}

func TestApplyProfilePartialFailure(t *testing.T) {
	about := "Бот флота, отвечает на команды."
	desc := "Подробное описание."

	conv := &fakeConv{
		onText: scriptedReplies(map[string][]*entity.Reply{
			"/setabouttext": {textReply("Choose a bot to change the about section.")},
			"@demofleetbot": {
				textReply("OK. Send me the new 'About' text."),
				textReply("OK. Send me the new description."),
			},
			about:             {textReply("Success! About section updated.")},
			"/setdescription": {textReply("Choose a bot to change description.")},
			// на сам текст описания агент молчит: оба захода истекают
		}),
	}
	c, _ := newTestClient(conv)

	profile := entity.BotProfile{
		Username:    "demofleetbot",
		About:       &about,
		Description: &desc,
	}
	ok, report := c.ApplyProfile(context.Background(), profile)
	assert.False(t, ok)
	assert.Contains(t, report, "частично")
	assert.Contains(t, report, "description error:")

	// аватар не задан — ходов за него не было
	assert.Zero(t, conv.sentCount("/setuserpic"))
	assert.Empty(t, conv.files)
}

func TestApplyProfileAllFields(t *testing.T) {
	about := "Бот флота."
	conv := &fakeConv{
		onText: scriptedReplies(map[string][]*entity.Reply{
			"/setabouttext": {textReply("Choose a bot to change the about section.")},
			"@demofleetbot": {
				textReply("OK. Send me the new 'About' text."),
				textReply("OK. Send me the photo."),
			},
			about:         {textReply("Success! About section updated.")},
			"/setuserpic": {textReply("Choose a bot to change profile photo.")},
		}),
		onFile: func(string) *entity.Reply {
			return textReply("Success! Profile photo updated.")
		},
	}
	c, _ := newTestClient(conv)

	ok, report := c.ApplyProfile(context.Background(), entity.BotProfile{
		Username:   "demofleetbot",
		About:      &about,
		BotpicPath: "/tmp/fleet.png",
	})
	require.True(t, ok, report)
	assert.Contains(t, report, "Профиль обновлён")
	assert.Equal(t, []string{"/tmp/fleet.png"}, conv.files)
}

func TestApplyProfileEmptySkipsDial(t *testing.T) {
	c, dialer := newTestClient(&fakeConv{})

	ok, report := c.ApplyProfile(context.Background(), entity.BotProfile{Username: "demofleetbot"})
	require.True(t, ok)
	assert.Contains(t, report, "нет полей")
	assert.Equal(t, 0, dialer.dials)
}

func TestListBotsOneFetchPerPage(t *testing.T) {
	w := newMenuWorld([][]entity.Button{
		cardsPage("@fleet01bot", "@fleet02bot", "@fleet03bot"),
		cardsPage("@fleet04bot", "@fleet05bot"),
		cardsPage("@fleet06bot"),
	})
	conv := w.conv()
	c, _ := newTestClient(conv)

	ok, usernames, report := c.ListBots(context.Background())
	require.True(t, ok, report)
	assert.Equal(t, []string{
		"@fleet01bot", "@fleet02bot", "@fleet03bot",
		"@fleet04bot", "@fleet05bot", "@fleet06bot",
	}, usernames)

	// три страницы — не больше четырёх запросов списка
	fetches := w.menuFetches + len(conv.clicks)
	assert.LessOrEqual(t, fetches, 4)
	// карточки перечислены без захода внутрь
	for _, click := range conv.clicks {
		assert.NotContains(t, click, "fleet")
	}
}

func TestListBotsEndlessMenuStopsAtPageCeiling(t *testing.T) {
	w := &endlessMenu{}
	conv := w.conv()
	c, _ := newTestClient(conv)

	ok, usernames, report := c.ListBots(context.Background())
	require.True(t, ok, report)
	assert.LessOrEqual(t, w.fetches, maxMenuPages+1)
	assert.LessOrEqual(t, len(usernames), maxMenuPages+1)
	assert.Contains(t, usernames, "@loop00bot")
}

func TestSetMenuButtonFlow(t *testing.T) {
	w := newMenuWorld([][]entity.Button{cardsPage("Demo Fleet")})
	w.details["Demo Fleet"] = &entity.Reply{
		Text: "Here it is: @demofleetbot. What do you want to do with the bot?",
		Buttons: [][]entity.Button{
			{{Label: "Edit Bot"}, {Label: "Bot Settings"}},
		},
	}
	w.clickMap["Bot Settings"] = &entity.Reply{
		Text: "Settings for @demofleetbot.",
		Buttons: [][]entity.Button{
			{{Label: "Menu Button"}, {Label: "Allow Groups?"}},
		},
	}
	w.clickMap["Menu Button"] = textReply("Send me the URL for the menu button.")

	conv := w.conv()
	conv.onText = func(text string) *entity.Reply {
		switch text {
		case "/start", "/cancel":
			return nil
		case "https://fleet.example.com/app":
			return textReply("Now send me the title for the menu button.")
		case "Open app":
			return textReply("Success! Menu button updated.")
		}
		return w.handleText(text)
	}
	c, _ := newTestClient(conv)

	ok, report := c.SetMenuButton(context.Background(), "demofleetbot",
		"https://fleet.example.com/app", "Open app")
	require.True(t, ok, report)
	assert.Contains(t, report, "Menu Button обновлён")
}

func TestSetMenuButtonEmptyValuesUseEscape(t *testing.T) {
	w := newMenuWorld([][]entity.Button{cardsPage("Demo Fleet")})
	w.details["Demo Fleet"] = &entity.Reply{
		Text: "Here it is: @demofleetbot.",
		Buttons: [][]entity.Button{
			{{Label: "Bot Settings"}},
		},
	}
	w.clickMap["Bot Settings"] = &entity.Reply{
		Text:    "Settings for @demofleetbot.",
		Buttons: [][]entity.Button{{{Label: "Menu Button"}}},
	}
	w.clickMap["Menu Button"] = textReply("Send me the URL for the menu button.")

	conv := w.conv()
	replies := []string{
		"Now send me the title for the menu button.",
		"Success! Menu button updated.",
	}
	conv.onText = func(text string) *entity.Reply {
		if text == "/empty" {
			r := textReply(replies[0])
			replies = replies[1:]
			return r
		}
		return w.handleText(text)
	}
	c, _ := newTestClient(conv)

	ok, _ := c.SetMenuButton(context.Background(), "demofleetbot", "", "")
	require.True(t, ok)
	assert.Equal(t, 2, conv.sentCount("/empty"))
}

func TestSetMenuButtonUnknownBot(t *testing.T) {
	w := newMenuWorld([][]entity.Button{cardsPage("Demo Fleet")})
	w.details["Demo Fleet"] = textReply("Here it is: @demofleetbot.")

	c, _ := newTestClient(w.conv())

	ok, report := c.SetMenuButton(context.Background(), "ghostfleetbot", "", "")
	assert.False(t, ok)
	assert.Contains(t, report, "Не удалось найти карточку")
}
