// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"fmt"
	"io"
	"strings"

	"github.com/supplymri/supplymri/utils/textutils"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// Elements whose content never reaches the extracted text.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// Node2string appends the text content of n to sb, separating text nodes with
// a single space. Script and style content is dropped.
func Node2string(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		tmp := strings.TrimSpace(n.Data)
		if len(tmp) > 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(tmp)
		}
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}

		fallthrough
	default:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			Node2string(child, sb)
		}
	}
}

// AsNode parses an io.Reader as an HTML node. The charset is sniffed from the
// content (BOM, <meta> declarations) and defaults to windows-1252 when unknown,
// which is what older EDGAR exhibits use.
func AsNode(r io.Reader) (*html.Node, error) {
	rr, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}

	n, err := html.Parse(rr)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}

// HTMLToText converts an HTML (or plain text) document into a single line of
// text: entities are decoded, script/style content dropped and whitespace
// collapsed.
func HTMLToText(r io.Reader) (string, error) {
	n, err := AsNode(r)
	if err != nil {
		return "", err
	}

	sb := strings.Builder{}
	Node2string(n, &sb)

	return textutils.CollapseSpaces(sb.String()), nil
}
