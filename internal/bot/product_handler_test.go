package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raine/telegram-tryon-bot/internal/catalog"
	"github.com/raine/telegram-tryon-bot/internal/generation"
	"github.com/raine/telegram-tryon-bot/internal/images"
	"github.com/raine/telegram-tryon-bot/internal/llm"
	"github.com/raine/telegram-tryon-bot/internal/storage"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// barrier waits until every message queued before it has been processed.
func barrier(session *UserSession) {
	session.SendSync(SessionMessage{Type: "barrier"})
}

func addPhotos(env *testEnv, fileIDs ...string) {
	for _, id := range fileIDs {
		env.send(photoUpdate(testAdminID, id))
	}
}

func fillForm(env *testEnv) {
	env.send(textUpdate(testAdminID, "/name Kaos Polos Hitam"))
	env.send(textUpdate(testAdminID, "/brand Erigo"))
}

func callbackData(markup any) []string {
	kb, ok := markup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				data = append(data, *btn.CallbackData)
			}
		}
	}
	return data
}

func TestNameAndBrandCommands(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)

	fillForm(env)
	assert.Equal(t, "Kaos Polos Hitam", session.form.Name)
	assert.Equal(t, "Erigo", session.form.Brand)
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, "Name: *Kaos Polos Hitam*"))

	env.send(textUpdate(testAdminID, "/name"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, MsgNameUsage))
	assert.Equal(t, "Kaos Polos Hitam", session.form.Name)
}

func TestPhoto_AddsLargestSizeWithButtons(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)

	addPhotos(env, "f1")

	uploaded := session.form.Images.Uploaded()
	require.Len(t, uploaded, 1)
	assert.Equal(t, "tg://f1", uploaded[0].URL)

	msg := env.tg.lastMessage()
	assert.Equal(t, formatReplyText(MsgPhotoAdded, 1, "7 photos"), msg.Text)
	assert.Equal(t, []string{"img:remove:" + uploaded[0].ID, "img:tryon:" + uploaded[0].ID}, callbackData(msg.ReplyMarkup))
}

func TestPhoto_LimitReached(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)

	addPhotos(env, "1", "2", "3", "4", "5", "6", "7", "8", "9")

	assert.Len(t, session.form.Images.Uploaded(), images.MaxUploadedImages)
	assert.Equal(t, formatReplyText(MsgPhotoLimitReached, images.MaxUploadedImages), env.tg.lastMessage().Text)
}

func TestRemovePhotoCallback(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)
	addPhotos(env, "f1", "f2")
	first := session.form.Images.Uploaded()[0]

	env.send(callbackUpdate(testAdminID, "img:remove:"+first.ID))

	uploaded := session.form.Images.Uploaded()
	require.Len(t, uploaded, 1)
	assert.Equal(t, "tg://f2", uploaded[0].URL)
	env.tg.AssertCalled(t, "Request", tgbotapi.NewCallback("cb-1", ""))

	env.send(callbackUpdate(testAdminID, "img:remove:"+first.ID))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, MsgPhotoNotFound))
}

func TestPhotosCommand_ListsEveryImage(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)

	env.send(textUpdate(testAdminID, "/photos"))
	assert.Contains(t, env.tg.lastMessage().Text, MsgNoPhotos)

	addPhotos(env, "f1", "f2")
	gen, ok := session.form.Images.BeginGeneration(session.form.Images.Uploaded()[0].ID)
	require.True(t, ok)

	env.send(textUpdate(testAdminID, "/photos"))
	msg := env.tg.lastMessage()
	assert.Contains(t, msg.Text, "*Photos:* 2/8")
	assert.Contains(t, msg.Text, "0 ready, 1 in progress")
	assert.Contains(t, callbackData(msg.ReplyMarkup), "gen:remove:"+gen.ID)
	assert.Len(t, callbackData(msg.ReplyMarkup), 5)
}

func TestTryOnCallback_ShowsAvatarPicker(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)
	addPhotos(env, "f1")
	img := session.form.Images.Uploaded()[0]

	env.send(callbackUpdate(testAdminID, "img:tryon:"+img.ID))

	msg := env.tg.lastMessage()
	assert.Equal(t, MsgChooseAvatar, msg.Text)
	assert.Equal(t, []string{
		"avatar:" + img.ID + ":men",
		"avatar:" + img.ID + ":women",
		"avatar:" + img.ID + ":boy",
		"avatar:" + img.ID + ":girl",
	}, callbackData(msg.ReplyMarkup))
}

func withLowerAvatar(session *UserSession) {
	options := append([]images.AvatarOption(nil), images.DefaultAvatars...)
	options = append(options, images.AvatarOption{ID: "legs", Label: "Legs", Image: "https://avatars.test/legs.jpg", Section: images.SectionLower})
	session.avatars = images.NewAvatarCatalog(options...)
}

func TestTryOnCallback_PickerGroupedBySection(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)
	withLowerAvatar(session)
	addPhotos(env, "f1")
	img := session.form.Images.Uploaded()[0]

	env.send(callbackUpdate(testAdminID, "img:tryon:"+img.ID))

	kb, ok := env.tg.lastMessage().ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	var rows [][]string
	for _, row := range kb.InlineKeyboard {
		var labels []string
		for _, btn := range row {
			labels = append(labels, btn.Text)
		}
		rows = append(rows, labels)
	}
	assert.Equal(t, [][]string{{"Men", "Women", "Boy"}, {"Girl"}, {"Legs"}}, rows)
}

func TestAvatarsCommand_BySection(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)
	withLowerAvatar(session)

	env.send(textUpdate(testAdminID, "/avatars"))
	text := env.tg.lastMessage().Text
	upper := strings.Index(text, "_upper_")
	lower := strings.Index(text, "_lower_")
	require.True(t, upper >= 0 && lower > upper, text)
	assert.Less(t, strings.Index(text, "`men` Men"), lower)
	assert.Greater(t, strings.Index(text, "`legs` Legs"), lower)

	env.send(textUpdate(testAdminID, "/avatars LOWER"))
	text = env.tg.lastMessage().Text
	assert.Contains(t, text, "`legs` Legs")
	assert.NotContains(t, text, "`men`")
	assert.NotContains(t, text, "_upper_")

	env.send(textUpdate(testAdminID, "/avatars feet"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, MsgAvatarsUsage))
}

func TestAvatarSelected_ResultArrivesThroughInbox(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)
	addPhotos(env, "f1")
	img := session.form.Images.Uploaded()[0]

	env.send(callbackUpdate(testAdminID, "avatar:"+img.ID+":men"))

	require.Eventually(t, func() bool {
		return len(session.form.Images.ResolvedGenerated()) == 1
	}, waitFor, tick)
	generated := session.form.Images.ResolvedGenerated()[0]
	assert.Equal(t, img.ID, generated.OriginalID)
	assert.Equal(t, "https://cdn.test/men.jpg", generated.URL)
	assert.False(t, generated.Fallback)

	calls, _ := env.generator.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "https://files.test/f1", calls[0].Source)
	assert.Equal(t, images.SectionUpper, calls[0].Avatar.Section)

	require.Eventually(t, func() bool {
		return env.tg.sentContaining("Try-on with *Men* ready")
	}, waitFor, tick)
}

func TestAvatarSelected_FallbackIsKept(t *testing.T) {
	env := setup(t)
	env.generator.avatarFn = func(images.AvatarOption, string) generation.AvatarResult {
		return generation.Fallback{URL: generation.FallbackImageURL, Reason: "status 500"}
	}
	session := env.bot.state.getUserSession(testAdminID)
	addPhotos(env, "f1")

	env.send(callbackUpdate(testAdminID, "avatar:"+session.form.Images.Uploaded()[0].ID+":women"))

	require.Eventually(t, func() bool {
		return env.tg.sentContaining("Try-on with *Women* failed")
	}, waitFor, tick)
	generated := session.form.Images.ResolvedGenerated()
	require.Len(t, generated, 1)
	assert.True(t, generated[0].Fallback)
	assert.Equal(t, generation.FallbackImageURL, generated[0].URL)
}

func TestGenerationResult_DiscardedAfterRemoval(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)
	addPhotos(env, "f1")
	gen, ok := session.form.Images.BeginGeneration(session.form.Images.Uploaded()[0].ID)
	require.True(t, ok)

	env.send(callbackUpdate(testAdminID, "gen:remove:"+gen.ID))
	session.SendSync(SessionMessage{
		Type: msgGenerationComplete,
		Generation: &GenerationResult{
			GeneratedID: gen.ID,
			AvatarLabel: "Men",
			Result:      generation.Resolved{URL: "https://cdn.test/late.jpg"},
		},
	})

	assert.Empty(t, session.form.Images.Generated())
	assert.False(t, env.tg.sentContaining("ready"))
}

func TestAvatarCommand_NextPhotoBecomesAvatarImage(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)

	env.send(textUpdate(testAdminID, "/avatar women"))
	addPhotos(env, "selfie")

	assert.Empty(t, session.form.Images.Uploaded())
	assert.True(t, session.avatars.HasCustomImage("women"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, "✅ Avatar *Women* now uses your photo."))

	addPhotos(env, "f1")
	env.send(callbackUpdate(testAdminID, "avatar:"+session.form.Images.Uploaded()[0].ID+":women"))

	require.Eventually(t, func() bool {
		calls, _ := env.generator.calls()
		return len(calls) == 1
	}, waitFor, tick)
	calls, _ := env.generator.calls()
	assert.Equal(t, "https://files.test/selfie", calls[0].Avatar.Image)

	env.send(textUpdate(testAdminID, "/avatar nobody"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, "Unknown avatar `nobody`. See /avatars."))
}

func TestSubmit_RequiresSellerSession(t *testing.T) {
	env := setup(t)
	fillForm(env)
	addPhotos(env, "f1")

	env.send(textUpdate(testAdminID, "/submit"))

	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, MsgSessionRequired))
	assert.False(t, env.catalog.WasCalled("GenerateProductCode"))
}

func TestSubmit_ValidationHappensBeforeNetwork(t *testing.T) {
	env := setup(t)
	env.loggedIn(t)

	env.send(textUpdate(testAdminID, "/submit"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, "Cannot submit: product name is required"))

	fillForm(env)
	env.send(textUpdate(testAdminID, "/submit"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, "Cannot submit: at least one image is required"))

	assert.Empty(t, env.catalog.Calls)
}

func TestSubmit_Success(t *testing.T) {
	env := setup(t)
	session := env.loggedIn(t)
	fillForm(env)
	addPhotos(env, "f1", "f2")
	env.send(callbackUpdate(testAdminID, "avatar:"+session.form.Images.Uploaded()[0].ID+":men"))
	require.Eventually(t, func() bool {
		return len(session.form.Images.ResolvedGenerated()) == 1
	}, waitFor, tick)

	env.send(textUpdate(testAdminID, "/submit"))

	require.Eventually(t, func() bool {
		return env.tg.sentContaining("Product created with code `MOCK-00001` (3 images)")
	}, waitFor, tick)
	barrier(session)

	assert.False(t, session.IsSubmitting())
	assert.Equal(t, 3, env.catalog.CallCount("UploadImage"))
	assert.Equal(t, 1, env.catalog.CallCount("CreateProduct"))
	assert.Equal(t, []string{"cookie-1"}, env.sessions)

	// Form is cleared after success
	assert.Empty(t, session.form.Name)
	assert.Empty(t, session.form.Images.Uploaded())
	assert.Empty(t, session.form.Images.Generated())

	records, err := env.store.ListSubmissions(testAdminID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, storage.SubmissionSucceeded, records[0].Status)
	assert.Equal(t, "MOCK-00001", records[0].ProductCode)
	assert.Equal(t, "Kaos Polos Hitam", records[0].ProductName)
	assert.Len(t, records[0].UploadedPaths, 3)
}

func TestSubmit_PendingTryOnsAreLeftOut(t *testing.T) {
	env := setup(t)
	release := make(chan struct{})
	env.generator.avatarFn = func(images.AvatarOption, string) generation.AvatarResult {
		<-release
		return generation.Resolved{URL: "https://cdn.test/slow.jpg"}
	}
	defer close(release)

	session := env.loggedIn(t)
	fillForm(env)
	addPhotos(env, "f1")
	env.send(callbackUpdate(testAdminID, "avatar:"+session.form.Images.Uploaded()[0].ID+":men"))
	require.Equal(t, 1, session.form.Images.PendingCount())

	env.send(textUpdate(testAdminID, "/submit"))

	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, "1 try-on still generating will not be included."))
	require.Eventually(t, func() bool {
		return env.tg.sentContaining("Product created")
	}, waitFor, tick)
	barrier(session)
	assert.Equal(t, 1, env.catalog.CallCount("UploadImage"))

	// The pending try-on was not submitted and stays on the form
	assert.Empty(t, session.form.Images.Uploaded())
	assert.Equal(t, 1, session.form.Images.PendingCount())
}

func TestSubmit_KeepsImagesAddedDuringSubmission(t *testing.T) {
	env := setup(t)
	creating := make(chan struct{})
	release := make(chan struct{})
	env.catalog.CreateProductFunc = func(ctx context.Context, payload map[string]any) error {
		close(creating)
		<-release
		return nil
	}
	tryOnRelease := make(chan struct{})
	env.generator.avatarFn = func(images.AvatarOption, string) generation.AvatarResult {
		<-tryOnRelease
		return generation.Resolved{URL: "https://cdn.test/late.jpg"}
	}
	defer close(tryOnRelease)

	session := env.loggedIn(t)
	fillForm(env)
	addPhotos(env, "f1", "f2")

	env.send(textUpdate(testAdminID, "/submit"))
	select {
	case <-creating:
	case <-time.After(waitFor):
		t.Fatal("submission never reached the create stage")
	}

	addPhotos(env, "f3")
	added := session.form.Images.Uploaded()[2]
	env.send(callbackUpdate(testAdminID, "avatar:"+added.ID+":men"))
	env.send(textUpdate(testAdminID, "/brand Other"))
	close(release)

	require.Eventually(t, func() bool {
		return env.tg.sentContaining("Product created with code `MOCK-00001` (2 images)")
	}, waitFor, tick)
	barrier(session)

	uploaded := session.form.Images.Uploaded()
	require.Len(t, uploaded, 1)
	assert.Equal(t, added, uploaded[0])
	assert.Equal(t, 1, session.form.Images.PendingCount())
	assert.Empty(t, session.form.Name)
	assert.Equal(t, "Other", session.form.Brand)
}

func TestSubmit_FailureKeepsForm(t *testing.T) {
	env := setup(t)
	env.catalog.UploadImageFunc = func(ctx context.Context, upload catalog.UploadImageRequest) (*catalog.UploadImageResponse, error) {
		return nil, errors.New("request failed: status 500")
	}
	session := env.loggedIn(t)
	fillForm(env)
	addPhotos(env, "f1")

	env.send(textUpdate(testAdminID, "/submit"))

	require.Eventually(t, func() bool {
		return env.tg.sentContaining("Submission failed at the upload stage")
	}, waitFor, tick)
	barrier(session)

	assert.False(t, session.IsSubmitting())
	assert.Equal(t, "Kaos Polos Hitam", session.form.Name)
	assert.Len(t, session.form.Images.Uploaded(), 1)
	assert.False(t, env.catalog.WasCalled("CreateProduct"))

	records, err := env.store.ListSubmissions(testAdminID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, storage.SubmissionFailed, records[0].Status)
	assert.Equal(t, "upload", records[0].Stage)
	assert.Equal(t, "MOCK-00001", records[0].ProductCode)
}

func TestSubmit_RejectedWhileInProgress(t *testing.T) {
	env := setup(t)
	session := env.loggedIn(t)
	session.setSubmitting(true)

	env.send(textUpdate(testAdminID, "/submit"))

	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, MsgSubmitInProgress))
}

func TestHistoryCommand(t *testing.T) {
	env := setup(t)

	env.send(textUpdate(testAdminID, "/history"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, MsgHistoryEmpty))

	require.NoError(t, env.store.SaveSubmission(&storage.SubmissionRecord{
		TelegramID:    testAdminID,
		ProductName:   "Jaket Denim",
		ProductCode:   "P-2",
		Status:        storage.SubmissionFailed,
		Stage:         "create",
		UploadedPaths: []string{"P-2/image_1.jpeg", "P-2/image_2.jpeg"},
		Error:         "status 500",
		CreatedAt:     time.Now(),
	}))

	env.send(textUpdate(testAdminID, "/history"))

	text := env.tg.lastMessage().Text
	assert.Contains(t, text, "*Jaket Denim* `P-2`")
	assert.Contains(t, text, "failed at create: status 500")
	assert.Contains(t, text, "2 images uploaded before the failure")
}

func TestSuggestCommand_FillsEmptyFields(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)

	env.send(textUpdate(testAdminID, "/suggest"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, MsgSuggestNeedsPhoto))

	env.analyzer.On("SuggestProduct", mock.Anything, []byte("tg://f1"), "image/jpeg").Return(&llm.SuggestionResult{
		Suggestion: &llm.ProductSuggestion{Name: "Kaos Polos", Brand: "Erigo", Description: "Kaos katun."},
	}, nil).Once()

	env.send(textUpdate(testAdminID, "/brand Acme"))
	addPhotos(env, "f1")
	env.send(textUpdate(testAdminID, "/suggest"))

	assert.Equal(t, "Kaos Polos", session.form.Name)
	assert.Equal(t, "Acme", session.form.Brand)
	assert.Contains(t, env.tg.lastMessage().Text, "Kaos katun.")
	env.analyzer.AssertExpectations(t)
}

func TestSuggestCommand_Error(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)
	env.analyzer.On("SuggestProduct", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("quota")).Once()

	addPhotos(env, "f1")
	env.send(textUpdate(testAdminID, "/suggest"))

	assert.Empty(t, session.form.Name)
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, "Could not suggest a product: quota"))
}

func TestVideoCommand_Disabled(t *testing.T) {
	env := setup(t)
	addPhotos(env, "f1")

	env.send(textUpdate(testAdminID, "/video Slow pan"))

	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, MsgVideoDisabled))
	_, videos := env.generator.calls()
	assert.Empty(t, videos)
}

func TestVideoCommand_Generates(t *testing.T) {
	env := setup(t)
	env.generator.enabled = true
	env.generator.videoURL = "https://cdn.test/clip.mp4"
	addPhotos(env, "f1", "f2")

	env.send(textUpdate(testAdminID, "/video all Slow pan around the model"))

	require.Eventually(t, func() bool {
		return env.tg.sentContaining("Video ready: https://cdn.test/clip.mp4")
	}, waitFor, tick)
	_, videos := env.generator.calls()
	require.Len(t, videos, 1)
	assert.Equal(t, []string{"https://files.test/f1", "https://files.test/f2", "Slow pan around the model"}, videos[0])
}

func TestVideoCommand_OnlySelectedImages(t *testing.T) {
	env := setup(t)
	env.generator.enabled = true
	env.generator.videoURL = "https://cdn.test/clip.mp4"
	session := env.bot.state.getUserSession(testAdminID)
	addPhotos(env, "f1", "f2", "f3")
	gen, ok := session.form.Images.BeginGeneration(session.form.Images.Uploaded()[1].ID)
	require.True(t, ok)
	require.True(t, session.form.Images.ResolveGeneration(gen.ID, "https://cdn.test/g1.jpg", false))

	env.send(textUpdate(testAdminID, "/video g1,3,1,3 Slow pan"))

	require.Eventually(t, func() bool {
		_, videos := env.generator.calls()
		return len(videos) == 1
	}, waitFor, tick)
	_, videos := env.generator.calls()
	assert.Equal(t, []string{"https://cdn.test/g1.jpg", "https://files.test/f3", "https://files.test/f1", "Slow pan"}, videos[0])
	assert.True(t, env.tg.sentContaining("Generating video from 3 images"))
}

func TestVideoCommand_PromptSuggestedFromName(t *testing.T) {
	env := setup(t)
	env.generator.enabled = true
	env.generator.videoURL = "https://cdn.test/clip.mp4"
	env.analyzer.On("SuggestVideoPrompt", mock.Anything, "Kaos Polos Hitam", "Erigo").Return("Zoom in on the fabric", nil).Once()
	fillForm(env)
	addPhotos(env, "f1")

	env.send(textUpdate(testAdminID, "/video 1"))

	require.Eventually(t, func() bool {
		_, videos := env.generator.calls()
		return len(videos) == 1
	}, waitFor, tick)
	_, videos := env.generator.calls()
	assert.Equal(t, []string{"https://files.test/f1", "Zoom in on the fabric"}, videos[0])
	env.analyzer.AssertExpectations(t)
}

func TestVideoCommand_Validation(t *testing.T) {
	env := setup(t)
	env.generator.enabled = true

	env.send(textUpdate(testAdminID, "/video all Slow pan"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, MsgVideoNoImages))

	addPhotos(env, "f1")
	env.send(textUpdate(testAdminID, "/video 1"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, MsgVideoNoPrompt))

	_, videos := env.generator.calls()
	assert.Empty(t, videos)
}

func TestVideoCommand_RejectsMissingSelection(t *testing.T) {
	env := setup(t)
	env.generator.enabled = true
	addPhotos(env, "f1", "f2")

	for _, text := range []string{"/video", "/video Slow pan", "/video , Slow pan", "/video glide around"} {
		env.send(textUpdate(testAdminID, text))
		assert.Equal(t, formatReplyText(MsgVideoUsage), env.tg.lastMessage().Text, text)
	}

	_, videos := env.generator.calls()
	assert.Empty(t, videos)
}

func TestVideoCommand_RejectsUnusableImages(t *testing.T) {
	env := setup(t)
	env.generator.enabled = true
	session := env.bot.state.getUserSession(testAdminID)
	addPhotos(env, "f1")
	_, ok := session.form.Images.BeginGeneration(session.form.Images.Uploaded()[0].ID)
	require.True(t, ok)

	env.send(textUpdate(testAdminID, "/video 1,4 Slow pan"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, formatReplyText(MsgVideoUnknownImage, "4")))

	env.send(textUpdate(testAdminID, "/video 1,g2 Slow pan"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, formatReplyText(MsgVideoUnknownImage, "g2")))

	env.send(textUpdate(testAdminID, "/video g1 Slow pan"))
	env.tg.AssertCalled(t, "Send", makeMessage(testAdminID, formatReplyText(MsgVideoImagePending, "g1")))

	_, videos := env.generator.calls()
	assert.Empty(t, videos)
}

func TestResetCommand(t *testing.T) {
	env := setup(t)
	session := env.bot.state.getUserSession(testAdminID)
	fillForm(env)
	addPhotos(env, "f1")
	env.send(textUpdate(testAdminID, "/avatar men"))

	env.send(textUpdate(testAdminID, "/reset"))

	assert.Empty(t, session.form.Name)
	assert.Empty(t, session.form.Brand)
	assert.Empty(t, session.form.Images.Uploaded())
	assert.Empty(t, session.pendingAvatarImage)
}
