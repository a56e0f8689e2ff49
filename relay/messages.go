package relay

const (
	msgStart = "Hi! I append your signature to everything you send me and send it back, " +
		"optionally also posting it to your channel.\n\n" +
		"Commands:\n" +
		"/set_signature <text> - set your signature (formatting is kept)\n" +
		"/show_signature - show your current signature\n" +
		"/remove_signature - remove your signature\n" +
		"/set_channel <@channel> - also post relayed messages to a channel\n" +
		"/show_channel - show the bound channel\n" +
		"/remove_channel - stop posting to the channel\n\n" +
		"To use a channel, add me to it as an administrator first."

	msgSignatureSetHeader  = "Signature set:\n"
	msgSignatureShowHeader = "Your current signature:\n"
	msgNoSignature         = "You have no signature set."
	msgSignatureRemoved    = "Signature removed."
	msgSetSignatureUsage   = "Please provide the signature text after the command, e.g.:\n/set_signature Best regards, John"

	msgSetChannelUsage = "Please provide the channel after the command, e.g.:\n/set_channel @my_channel"
	msgChannelSet      = "Channel %s set successfully."
	msgChannelCheck    = "Checking that I can post to this channel. This message will be deleted."
	msgChannelFailed   = "Failed to set the channel. Make sure that:\n" +
		"1. The channel exists\n" +
		"2. The bot is an administrator of the channel\n" +
		"3. The channel handle is correct\n\n" +
		"Error: %v"
	msgChannelRemoved = "Channel removed."
	msgNoChannel      = "You have no channel set."
	msgChannelShow    = "Your current channel: %s"

	msgChannelSendFailed = "Failed to send to channel %s. Check the bot's permissions and that the channel exists.\nError: %v"

	msgStorageUnavailable = "Storage is unavailable right now, please try again later."
	msgRecordRejected     = "That can't be saved: %v"
)

// signatureSeparator goes between the message body and the signature.
const signatureSeparator = "\n\n"
