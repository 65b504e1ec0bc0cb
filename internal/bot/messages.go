package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgOk            = `Ok!`
	MsgUnexpectedErr = `Unexpected error: %s`
	MsgStartPrompt   = `
		Send photos of the garment to start a product.

		Then set the name with /name and the brand with /brand, try the garment on an avatar from /photos and finish with /submit.
	`
	MsgVersionInfo = "Version: %s\nBuilt: %s"
	MsgFormReset   = "Form cleared."
)

// =============================================================================
// Seller session messages
// =============================================================================

const (
	MsgSessionRequired  = "Set your seller session first: `/session <SESSION cookie>`"
	MsgSessionUsage     = "Usage: `/session <SESSION cookie>`"
	MsgSessionSaved     = "✅ Seller session saved. The message with the cookie was deleted."
	MsgSessionLoggedOut = "Seller session removed."
)

// =============================================================================
// Product form messages
// =============================================================================

const (
	MsgNameUsage  = "Usage: `/name <product name>`"
	MsgBrandUsage = "Usage: `/brand <brand>`"
	MsgNameSet    = "Name: *%s*"
	MsgBrandSet   = "Brand: *%s*"

	MsgPhotoAdded        = "📷 Photo #%d added (%s left)."
	MsgPhotoLimitReached = "You can add at most %d photos. Remove one from /photos first."
	MsgNoPhotos          = "No photos yet. Send a photo to add one."
	MsgPhotoRemoved      = "Photo removed."
	MsgPhotoNotFound     = "That photo is no longer in the form."
	MsgGeneratedRemoved  = "Generated image removed."

	MsgFormSummary = `
		*Name:* %s
		*Brand:* %s
		*Photos:* %d/%d
		*Generated:* %d ready, %d in progress
	`
	MsgNotSet = "_not set_"
)

// =============================================================================
// Avatar and generation messages
// =============================================================================

const (
	MsgChooseAvatar           = "Choose an avatar to try the garment on:"
	MsgAvatarNotFound         = "Unknown avatar `%s`. See /avatars."
	MsgAvatarUsage            = "Usage: `/avatar <id>`, then send the avatar photo."
	MsgAvatarSendPhoto        = "Send a photo to use for avatar *%s*."
	MsgAvatarImageSet         = "✅ Avatar *%s* now uses your photo."
	MsgAvatarsHeader          = "*Avatars:*\n"
	MsgAvatarsSection         = "_%s_\n"
	MsgAvatarsUsage           = "Usage: `/avatars [upper|lower]`"
	MsgGenerationStarted      = "⏳ Generating try-on with avatar *%s*..."
	MsgGenerationReady        = "👕 Try-on with *%s* ready."
	MsgGenerationFallback     = "⚠️ Try-on with *%s* failed, using a placeholder image. You can remove it from /photos."
	MsgGenerationUnavailable  = "Photo is not reachable by the try-on service."
	MsgAvatarImageUnavailable = "The photo of avatar *%s* is not reachable by the try-on service."
)

// =============================================================================
// Listing assistant messages
// =============================================================================

const (
	MsgSuggestUnavailable = "Suggestions are not configured."
	MsgSuggestNeedsPhoto  = "Send a photo first."
	MsgSuggestion         = `
		*Suggestion*
		Name: %s
		Brand: %s
		%s

		Empty fields were filled in. Use /name or /brand to change them.
	`
	MsgSuggestFailed = "Could not suggest a product: %s"
)

// =============================================================================
// Video messages
// =============================================================================

const (
	MsgVideoDisabled         = "Video generation is not configured."
	MsgVideoNoImages         = "No images to make a video from."
	MsgVideoUsage            = "Usage: `/video <images> [prompt]`\nPick images by their number in /photos, e.g. `/video 1,3,g1 slow pan`, or use `all`."
	MsgVideoNoPrompt         = "Add a prompt: `/video <images> <prompt>`"
	MsgVideoUnknownImage     = "There is no image `%s`. See /photos."
	MsgVideoImagePending     = "Try-on `%s` is still in progress."
	MsgVideoImageUnavailable = "Image `%s` is not reachable by the video service."
	MsgVideoStarted          = "🎬 Generating video from %s..."
	MsgVideoReady            = "🎬 Video ready: %s"
	MsgVideoFailed           = "Video generation failed: %s"
	MsgVideoPromptUsed       = "Prompt: _%s_"
)

// =============================================================================
// Submission messages
// =============================================================================

const (
	MsgSubmitInProgress   = "A submission is already in progress."
	MsgSubmitStarted      = "⏳ Submitting *%s* with %s..."
	MsgSubmitPendingNote  = "%s still generating will not be included."
	MsgSubmitSucceeded    = "✅ Product created with code `%s` (%s)."
	MsgSubmitFailed       = "❌ Submission failed at the %s stage: %s\n\nThe form was kept, fix the issue and /submit again."
	MsgSubmitInvalid      = "Cannot submit: %s"
	MsgHistoryEmpty       = "No submissions yet."
	MsgHistoryHeader      = "*Recent submissions:*\n"
	MsgHistoryOrphanPaths = "  %s uploaded before the failure"
)

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage           = "Usage:\n`/admin users add <user_id>`\n`/admin users remove <user_id>`\n`/admin users list`"
	MsgAdminUserAddUsage    = "Usage: `/admin users add <user_id>`"
	MsgAdminUserRemoveUsage = "Usage: `/admin users remove <user_id>`"
	MsgAdminUserInvalidID   = "Invalid user ID. Give a number."
	MsgAdminUserAdded       = "✅ User `%d` added."
	MsgAdminUserRemoved     = "🗑 User `%d` removed."
	MsgAdminNoUsers         = "No allowed users."
	MsgAdminAllowedUsers    = "*Allowed users:*\n"
)

// =============================================================================
// Buttons
// =============================================================================

const (
	BtnRemove          = "🗑 Remove #%d"
	BtnTryOn           = "👕 Try on #%d"
	BtnRemoveGenerated = "🗑 Remove #g%d"
)
