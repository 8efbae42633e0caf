package parse_test

import (
	"testing"

	"git.sr.ht/~rjarry/mailthread/lib/parse"
	"github.com/stretchr/testify/assert"
)

func TestMsgIDList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "valid",
			input:    "<1q@az> (cmt)\r\n <2w@sx> (khld)",
			expected: []string{"1q@az", "2w@sx"},
		},
		{
			name:     "comma",
			input:    "<3e@dc>, <4r@fv>,\t<5t@gb>",
			expected: []string{"3e@dc", "4r@fv", "5t@gb"},
		},
		{
			name:     "empty ids",
			input:    "<hn@7u>\n <> <jm@8i>",
			expected: []string{"hn@7u", "jm@8i"},
		},
		{
			name:     "folded inside an id",
			input:    "<abc@ex\r\n ample.org> <Def@Example.ORG>",
			expected: []string{"abc@example.org", "def@example.org"},
		},
		{
			name:     "truncated",
			input:    "<trunc@ <ok@host>",
			expected: []string{"ok@host"},
		},
		{
			name:     "garbage",
			input:    "no ids in here",
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual := parse.MsgIDList(test.input)
			assert.Equal(t, test.expected, actual)
		})
	}
}

func TestInReplyTo(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"<a@b>", "a@b"},
		{"John's message of today <X @Y.z> <other@id>", "x@y.z"},
		{"a@b", ""},
		{"", ""},
		{"<> <c@d>", "c@d"},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			assert.Equal(t, test.expected, parse.InReplyTo(test.input))
		})
	}
}

func TestMsgID(t *testing.T) {
	assert.Equal(t, "abc@example.org", parse.MsgID(" <ABC@example.org> "))
	assert.Equal(t, "abc@example.org", parse.MsgID("abc@Example.org"))
	assert.Equal(t, "abc@example.org", parse.MsgID("<abc@ex ample.org> (comment)"))
	assert.Equal(t, "", parse.MsgID("  "))
}
