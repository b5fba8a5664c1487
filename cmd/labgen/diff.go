package main

import "strings"

// unifiedDiff compares two plan tables line by line (LCS walk) and returns
// +/- lines for everything that changed. Empty string means identical.
func unifiedDiff(before, after string) string {
	left := splitLines(before)
	right := splitLines(after)
	if len(left) == 0 && len(right) == 0 {
		return ""
	}

	dp := make([][]int, len(left)+1)
	for i := range dp {
		dp[i] = make([]int, len(right)+1)
	}
	for i := len(left) - 1; i >= 0; i-- {
		for j := len(right) - 1; j >= 0; j-- {
			if left[i] == right[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var out []string
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		switch {
		case left[i] == right[j]:
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			out = append(out, "- "+left[i])
			i++
		default:
			out = append(out, "+ "+right[j])
			j++
		}
	}
	for ; i < len(left); i++ {
		out = append(out, "- "+left[i])
	}
	for ; j < len(right); j++ {
		out = append(out, "+ "+right[j])
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

func splitLines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
