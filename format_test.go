package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContainsScheme(t *testing.T) {
	assert.True(t, containsScheme("tableau://host?token_name=ci"))
	assert.True(t, containsScheme("https://tableau.example.com"))
	assert.False(t, containsScheme("prod"))
	assert.False(t, containsScheme(""))
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	thisYear := time.Date(now.Year(), time.March, 5, 9, 30, 0, 0, time.Local)
	assert.Equal(t, "Mar  5 09:30", formatTime(thisYear))

	lastYear := time.Date(now.Year()-1, time.March, 5, 9, 30, 0, 0, time.Local)
	assert.Equal(t, "Mar  5  "+lastYear.Format("2006"), formatTime(lastYear))
}

func TestPrintTable(t *testing.T) {
	var buf strings.Builder
	printTable(&buf, []string{"NAME", "STATE"}, [][]string{
		{"Sales", "success"},
		{"Inventory Snapshot", "failed"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)

	// Columns align on the widest cell.
	assert.Equal(t, "NAME                STATE", strings.TrimRight(lines[0], " "))
	assert.Equal(t, "Sales               success", strings.TrimRight(lines[1], " "))
	assert.Equal(t, "Inventory Snapshot  failed", strings.TrimRight(lines[2], " "))
}
