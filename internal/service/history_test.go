package service

import (
	"testing"

	"vitalia/internal/models"

	"github.com/stretchr/testify/assert"
)

func sampleWithHR(hr int) models.VitalsSample {
	return models.VitalsSample{HeartRate: hr}
}

func TestHistory_KeepsInsertionOrder(t *testing.T) {
	h := NewHistory(3)
	h.Add(sampleWithHR(61))
	h.Add(sampleWithHR(62))

	items := h.Items()
	assert.Len(t, items, 2)
	assert.Equal(t, 61, items[0].HeartRate)
	assert.Equal(t, 62, items[1].HeartRate)
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for hr := 61; hr <= 65; hr++ {
		h.Add(sampleWithHR(hr))
	}

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Cap())

	var hrs []int
	for _, s := range h.Items() {
		hrs = append(hrs, s.HeartRate)
	}
	assert.Equal(t, []int{63, 64, 65}, hrs)
}

func TestHistory_DefaultSize(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, DefaultHistorySize, h.Cap())
	assert.Empty(t, h.Items())
}

func TestHistory_ItemsIsCopy(t *testing.T) {
	h := NewHistory(2)
	h.Add(sampleWithHR(70))

	items := h.Items()
	items[0].HeartRate = 999

	assert.Equal(t, 70, h.Items()[0].HeartRate)
}
