package infractions

import (
	"fmt"
	"math/rand"
)

// starNames is the pool of forced nicknames for superstar infractions.
var starNames = []string{
	"David Bowie", "Freddie Mercury", "Whitney Houston", "Elvis Presley",
	"Aretha Franklin", "Prince", "Stevie Wonder", "Dolly Parton",
	"Johnny Cash", "Tina Turner", "Michael Jackson", "Janis Joplin",
	"Elton John", "Cher", "Bob Marley", "Madonna",
	"Jimi Hendrix", "Diana Ross", "Frank Sinatra", "Billie Holiday",
}

// StarNickname derives the forced nickname for a superstar infraction.
// The seed is a function of the infraction and user IDs only, so the
// same nickname is reproduced on rejoin without storing it anywhere.
func StarNickname(infractionID int64, userID string) string {
	var userPart int64
	for _, r := range userID {
		userPart = userPart*31 + int64(r)
	}
	rng := rand.New(rand.NewSource(infractionID ^ userPart))
	return starNames[rng.Intn(len(starNames))]
}

// starDMBody is the mandatory notification sent before a superstar
// nickname lock is applied.
func starDMBody(nick, reason, expiry string) string {
	return fmt.Sprintf(
		"Your nickname didn't comply with our nickname policy, so it has been changed to **%s** until %s.\nReason: %s",
		nick, expiry, reason,
	)
}
