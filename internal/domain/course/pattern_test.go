package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReviewPattern(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"10 / 8 / 6", []int{10, 8, 6}},
		{"10,8.6*4", []int{10, 8, 6, 4}},
		{"  5  ", []int{5}},
		{"3 / x / 2", []int{3, 2}},
		{"150 / 0", []int{99, 0}},
		{"", []int{}},
		{"? / ? / ?", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReviewPattern(tt.in))
		})
	}
}

func TestFormatReviewPattern(t *testing.T) {
	assert.Equal(t, "10 / 8 / 6", FormatReviewPattern([]int{10, 8, 6}))
	assert.Equal(t, EmptyPatternText, FormatReviewPattern(nil))
}

func TestParseSentencesPerDay(t *testing.T) {
	assert.Equal(t, 10, ParseSentencesPerDay(" 10 "))
	assert.Equal(t, MaxSentencesPerDay, ParseSentencesPerDay("150"))
	assert.Equal(t, 0, ParseSentencesPerDay("ten"))
	assert.Equal(t, 0, ParseSentencesPerDay("-3"))
}

func TestBuildOrder(t *testing.T) {
	assert.Equal(t, "01", BuildOrder(2, ChorusNone))
	assert.Equal(t, "01", BuildOrder(2, ChorusNew))
	assert.Equal(t, "011", BuildOrder(2, ChorusAll))
	assert.Equal(t, "01122", BuildOrder(3, ChorusAll))
	assert.Equal(t, "00", BuildOrder(1, ChorusAll))
	assert.Equal(t, "0", BuildOrder(1, ChorusNone))
}

func TestValidateOrder(t *testing.T) {
	assert.NoError(t, validateOrder("011", 2))
	assert.Error(t, validateOrder("", 2))
	assert.Error(t, validateOrder("0a", 2))
	assert.Error(t, validateOrder("2", 2))
}
