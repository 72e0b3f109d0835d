package index

import (
	"reflect"
	"testing"
)

func TestBuild(t *testing.T) {
	texts := []string{
		"The cat sat on the mat.",
		"The dog ran in the park.",
		"Cat and dog, together.",
	}

	inv := Build(texts)

	tests := []struct {
		term string
		want []int
	}{
		{"cat", []int{0, 2}},
		{"dog", []int{1, 2}},
		{"the", []int{0, 1}},
		{"mat", []int{0}},
		{"together", []int{2}},
		{"missing", nil},
	}
	for _, tt := range tests {
		if got := inv.Postings(tt.term); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Postings(%q) = %v, want %v", tt.term, got, tt.want)
		}
	}

	if got := inv.DocFreq("cat"); got != 2 {
		t.Errorf("DocFreq(cat) = %d, want 2", got)
	}
}

func TestBuildDeduplicatesRepeatedTerms(t *testing.T) {
	inv := Build([]string{"buffalo buffalo buffalo"})
	if got := inv.Postings("buffalo"); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Postings(buffalo) = %v, want [0]", got)
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	inv := Build(nil)
	if inv == nil {
		t.Fatal("Build(nil) returned nil index")
	}
	if inv.Terms() != 0 {
		t.Errorf("Terms() = %d, want 0", inv.Terms())
	}
}

func TestBuildDeterministic(t *testing.T) {
	texts := []string{
		"alpha beta gamma",
		"beta gamma delta",
		"gamma delta epsilon",
	}

	first := Build(texts)
	second := Build(texts)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("rebuild produced a different index:\nfirst:  %v\nsecond: %v", first, second)
	}
}
