package wotd

import (
	"fmt"

	"github.com/enescakir/emoji"
)

const (
	parrotKickReason = "What are you, a parrot?"
	lateKickReason   = "Oh, so close!"
)

func parrotReason() string {
	return fmt.Sprintf("%s %s", emoji.Parrot, parrotKickReason)
}

func startMessage() string {
	return "Starting the Word of the Day game!"
}

func congratulationsMessage(word string) string {
	return fmt.Sprintf("%s Congratulations to our winners. The word of the day was “%s”", emoji.PartyPopper, word)
}

func nobodyGuessedMessage(word string) string {
	return fmt.Sprintf("The word of the day was “%s”, but nobody guessed it :(. Choosing a new one…", word)
}

func callToActionMessage() string {
	return fmt.Sprintf("Guess the word of the day and receive a hat! %s", emoji.TopHat)
}

func secretNotice(word string) string {
	return fmt.Sprintf("You have guessed the word of the day: “%s”. Don’t tell anyone, it’s a secret! Enjoy your hat. %s", word, emoji.TopHat)
}

func roundCompleteMessage(word string) string {
	return fmt.Sprintf("That’s all the hats! The word of the day was “%s”. Congrats to our winners. Until tomorrow…", word)
}
