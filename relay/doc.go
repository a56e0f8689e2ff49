// Package relay implements the bot's behavior: signature and channel commands, and
// relaying text and media back to the sender (and their bound channel) with the sender's
// signature appended and every formatting span remapped onto the combined text.
//
// Bot.HandleUpdate processes a single update; Poller drives it from getUpdates long polling.
package relay
