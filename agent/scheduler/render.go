package scheduler

import (
	"fmt"
	"strings"
)

const noSlotsText = "There are no time slots available at the moment."

func renderAvailability(slots []string) string {
	if len(slots) == 0 {
		return noSlotsText
	}
	return "Current time slots available: " + strings.Join(slots, ", ")
}

func renderBooked(slot string) string {
	return fmt.Sprintf("An appointment is set for %s.", slot)
}

func renderRejected(slot string) string {
	return fmt.Sprintf("Sorry, %s is not an available time slot. Ask me for the available slots and pick one of them.", slot)
}
