package sensordata

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"
)

// Word is a keypoint tagged with the id registration matched it under. Ids may repeat.
type Word struct {
	ID       int
	Keypoint KeyPoint
}

// Word3 is the 3D position of a matched keypoint.
type Word3 struct {
	ID    int
	Point r3.Vector
}

// WordDescriptor is the descriptor of a matched keypoint.
type WordDescriptor struct {
	ID         int
	Descriptor []byte
}

// Frame is what registration operates on: a sample plus the id-tagged words registration
// produced for it. Frames have no identity of their own.
type Frame struct {
	Data SensorData

	Words            []Word
	Words3           []Word3
	WordsDescriptors []WordDescriptor
}

// NewFrame builds a frame over a copy of the sample with no words.
func NewFrame(data *SensorData) *Frame {
	if data == nil {
		return &Frame{}
	}
	return &Frame{Data: *data.Clone()}
}

// Clone returns a copy of the frame that can be handed to registration without the original
// being modified.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Data:             *f.Data.Clone(),
		Words:            append([]Word(nil), f.Words...),
		Words3:           append([]Word3(nil), f.Words3...),
		WordsDescriptors: make([]WordDescriptor, len(f.WordsDescriptors)),
	}
	for i, wd := range f.WordsDescriptors {
		out.WordsDescriptors[i] = WordDescriptor{ID: wd.ID, Descriptor: append([]byte(nil), wd.Descriptor...)}
	}
	return out
}

// ClearWords drops the matched words, keeping the sample and its extracted features.
func (f *Frame) ClearWords() {
	f.Words = nil
	f.Words3 = nil
	f.WordsDescriptors = nil
}

// IsValid returns whether the frame's sample is usable.
func (f *Frame) IsValid() bool {
	return f != nil && f.Data.IsValid()
}

// FeatureCount is the number of word descriptors in the frame.
func (f *Frame) FeatureCount() int {
	return len(f.WordsDescriptors)
}

// UniqueWordPair is a correspondence between two frames over an id that appears exactly once
// in each of them.
type UniqueWordPair struct {
	ID   int
	From KeyPoint
	To   KeyPoint
}

// FindUniquePairs returns the words whose ids appear exactly once in both slices, ordered by id.
func FindUniquePairs(from, to []Word) []UniqueWordPair {
	fromUnique := uniqueWords(from)
	toUnique := uniqueWords(to)

	pairs := make([]UniqueWordPair, 0, len(fromUnique))
	for id, kp := range fromUnique {
		if other, ok := toUnique[id]; ok {
			pairs = append(pairs, UniqueWordPair{ID: id, From: kp, To: other})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID < pairs[j].ID })
	return pairs
}

func uniqueWords(words []Word) map[int]KeyPoint {
	counts := lo.CountValuesBy(words, func(w Word) int { return w.ID })
	out := make(map[int]KeyPoint, len(words))
	for _, w := range words {
		if counts[w.ID] == 1 {
			out[w.ID] = w.Keypoint
		}
	}
	return out
}
