package localetext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDateLocaleVariants(t *testing.T) {
	expected := time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC)

	variants := []string{
		"Jan/05/2021",
		"2021年01月05日",
		"2021년 01월 05일",
		"2021/01/05",
		"  Jan/05/2021　",
	}
	for _, v := range variants {
		parsed, ok := ParseDate(v)
		require.True(t, ok, v)
		require.Equal(t, expected, parsed, v)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, v := range []string{
		"",
		"----",
		"TBA",
		"2021/1/5",
		"Jan 5, 2021",
	} {
		_, ok := ParseDate(v)
		require.False(t, ok, v)
	}
}

func TestParseLeadingDate(t *testing.T) {
	expected := time.Date(2021, time.May, 10, 0, 0, 0, 0, time.UTC)

	testCases := []string{
		"May/10/2021 bugfix release",
		"2021年05月10日 修正版を公開しました",
		"2021년 05월 10일 업데이트",
		"2021年05月10日",
	}
	for _, v := range testCases {
		parsed, ok := ParseLeadingDate(v)
		require.True(t, ok, v)
		require.Equal(t, expected, parsed, v)
	}

	_, ok := ParseLeadingDate("updated recently")
	require.False(t, ok)
}

func TestIsAbsent(t *testing.T) {
	require.True(t, IsAbsent("----"))
	require.True(t, IsAbsent("-"))
	require.True(t, IsAbsent(" ---- "))
	require.False(t, IsAbsent(""))
	require.False(t, IsAbsent("2021/01/05"))
}
