// cmd/ourpkgversion/summary.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/gagin/ourpkgversion/internal/munge"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	mungedColor  = color.New(color.FgGreen, color.Bold)
	skippedColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// TreeNode is one path element of the munged-files tree.
type TreeNode struct {
	Name     string
	Children map[string]*TreeNode
	Result   *FileResult
}

func buildTree(results []FileResult) *TreeNode {
	root := &TreeNode{Name: ".", Children: make(map[string]*TreeNode)}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	for i := range results {
		res := &results[i]
		parts := strings.Split(res.Path, "/")
		currentNode := root
		for j, part := range parts {
			if part == "" {
				continue
			}
			childNode, exists := currentNode.Children[part]
			if !exists {
				childNode = &TreeNode{Name: part, Children: make(map[string]*TreeNode)}
				currentNode.Children[part] = childNode
			}
			if j == len(parts)-1 {
				childNode.Result = res
			}
			currentNode = childNode
		}
	}
	return root
}

func sortedChildren(node *TreeNode) []string {
	names := make([]string, 0, len(node.Children))
	for name := range node.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// printTreeRecursive renders node in the style of tree(1). Manually listed
// files get an [M] marker at debug level.
func printTreeRecursive(writer io.Writer, node *TreeNode, indent string, isLast bool) {
	if node.Name == "." {
		names := sortedChildren(node)
		for i, name := range names {
			printTreeRecursive(writer, node.Children[name], indent, i == len(names)-1)
		}
		return
	}

	connector := tern(isLast, "└── ", "├── ")
	info := ""
	manualMarker := ""
	if node.Result != nil {
		info = fmt.Sprintf(" (%d %s)", node.Result.Mutations, tern(node.Result.Mutations == 1, "mutation", "mutations"))
		if node.Result.IsManual && slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			manualMarker = " [M]"
		}
	}
	fmt.Fprintf(writer, "%s%s%s%s%s\n", indent, connector, node.Name, manualMarker, info)

	childIndent := indent + tern(isLast, "    ", "│   ")
	names := sortedChildren(node)
	for i, name := range names {
		printTreeRecursive(writer, node.Children[name], childIndent, i == len(names)-1)
	}
}

func printSummaryListSection[K comparable, V any](
	writer io.Writer,
	title *color.Color,
	titleFormat string,
	items map[K]V,
	getPath func(K) string,
	getDetails func(K, V) string,
) {
	title.Fprintf(writer, titleFormat, len(items))
	if len(items) == 0 {
		return
	}
	keys := make([]K, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return getPath(keys[i]) < getPath(keys[j]) })
	for _, k := range keys {
		pathStr := getPath(k)
		detailsStr := ""
		if getDetails != nil {
			detailsStr = getDetails(k, items[k])
		}
		if detailsStr != "" {
			fmt.Fprintf(writer, "- %s: %s\n", pathStr, detailsStr)
		} else {
			fmt.Fprintf(writer, "- %s\n", pathStr)
		}
	}
}

// printSummary writes the run report: munged files as a tree, then skipped
// files and errors with their reasons.
func printSummary(results []FileResult, skipped map[string]string, errorFiles map[string]error, root string, dryRun bool, outputWriter io.Writer) {
	var munged []FileResult
	allSkipped := make(map[string]string, len(skipped))
	for k, v := range skipped {
		allSkipped[k] = v
	}
	allErrors := make(map[string]error, len(errorFiles))
	for k, v := range errorFiles {
		allErrors[k] = v
	}
	total := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			allErrors[r.Path] = r.Err
		case r.Path == "":
			// never started
		case r.Status == munge.StatusMunged:
			munged = append(munged, r)
			total += r.Mutations
		default:
			allSkipped[r.Path] = r.Reason
		}
	}

	headerColor.Fprintln(outputWriter, "\n--- Summary ---")
	if len(munged) > 0 {
		base := filepath.Base(root)
		rootDisplay := tern(base != "." && base != string(filepath.Separator),
			fmt.Sprintf("'%s'", base), fmt.Sprintf("'%s'", root))
		verb := tern(dryRun, "Would munge", "Munged")
		mungedColor.Fprintf(outputWriter, "%s %d files (%d mutations total) in %s:\n",
			verb, len(munged), total, rootDisplay)
		printTreeRecursive(outputWriter, buildTree(munged), "", true)
	} else {
		fmt.Fprintln(outputWriter, "No files munged.")
	}

	printSummaryListSection(outputWriter, skippedColor, "\nSkipped files (%d):\n",
		allSkipped, func(path string) string { return path },
		func(_ string, reason string) string { return reason })

	printSummaryListSection(outputWriter, errorColor, "\nErrors encountered (%d):\n",
		allErrors, func(path string) string { return path },
		func(_ string, err error) string { return err.Error() })

	headerColor.Fprintln(outputWriter, "---------------")
}
