package game

import (
	"math/rand"

	"golang.org/x/exp/slices"
)

const (
	// PromptCount is the size of the prompt range; prompts are 0..PromptCount-1.
	PromptCount = 5
	// PromptWindow is how many recent prompts a room remembers.
	PromptWindow = 5

	maxPromptAttempts = 64
)

// PromptGenerator hands out round prompts per room without repeating any value
// in the room's recent window. Once the window is full it is cleared before
// the next pick, so a repeat across that boundary is possible.
//
// Like Registry it is owned by a single goroutine.
type PromptGenerator struct {
	rng     *rand.Rand
	history map[string][]int
	used    map[string][]int
}

func NewPromptGenerator(rng *rand.Rand) *PromptGenerator {
	return &PromptGenerator{
		rng:     rng,
		history: make(map[string][]int),
		used:    make(map[string][]int),
	}
}

// Generate picks the next prompt for roomID and records it.
func (g *PromptGenerator) Generate(roomID string) int {
	recent := g.history[roomID]
	if len(recent) == PromptWindow {
		recent = recent[:0]
	}

	value := -1
	for i := 0; i < maxPromptAttempts; i++ {
		candidate := g.rng.Intn(PromptCount)
		if !slices.Contains(recent, candidate) {
			value = candidate
			break
		}
	}

	// recent holds fewer than PromptCount values here, so one is free
	if value < 0 {
		for candidate := 0; candidate < PromptCount; candidate++ {
			if !slices.Contains(recent, candidate) {
				value = candidate
				break
			}
		}
	}

	g.history[roomID] = append(recent, value)
	return value
}

// MarkUsed records a prompt the room reports as used. The list is tracked on
// its own and is cleared when it holds exactly PromptWindow entries.
func (g *PromptGenerator) MarkUsed(roomID string, value int) {
	used := g.used[roomID]
	if len(used) == PromptWindow {
		used = used[:0]
	}
	g.used[roomID] = append(used, value)
}

// History returns a copy of the room's recent prompts, oldest first.
func (g *PromptGenerator) History(roomID string) []int {
	return slices.Clone(g.history[roomID])
}

// Used returns a copy of the values recorded through MarkUsed.
func (g *PromptGenerator) Used(roomID string) []int {
	return slices.Clone(g.used[roomID])
}
