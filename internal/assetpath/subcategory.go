package assetpath

import (
	"fmt"
	"strings"
)

const (
	SubCategoryOverlays    = "Overlays"
	SubCategoryTransitions = "Transitions"
	SubCategorySFX         = "SFX"
	SubCategoryPlugins     = "Plugins"
	SubCategoryLUTs        = "LUTs"
)

type subCategoryRule struct {
	segment string
	label   string
}

// subCategoryRules is evaluated in order. A key naming several of these
// folders is ambiguous; the earliest rule wins.
var subCategoryRules = []subCategoryRule{
	{segment: "overlays", label: SubCategoryOverlays},
	{segment: "transitions", label: SubCategoryTransitions},
	{segment: "sfx", label: SubCategorySFX},
	{segment: "plugins", label: SubCategoryPlugins},
	{segment: "luts", label: SubCategoryLUTs},
}

// SubCategory classifies key by the category folder it lives under.
func SubCategory(key string) (string, bool) {
	segments := strings.Split(strings.ToLower(key), "/")
	for _, rule := range subCategoryRules {
		for _, seg := range segments {
			if seg == rule.segment {
				return rule.label, true
			}
		}
	}
	return "", false
}

// SubCategoryFolder returns the folder segment for a label, accepting any
// letter case.
func SubCategoryFolder(label string) (string, error) {
	for _, rule := range subCategoryRules {
		if strings.EqualFold(rule.label, label) || strings.EqualFold(rule.segment, label) {
			return rule.segment, nil
		}
	}
	return "", fmt.Errorf("unknown subcategory %q", label)
}

// WithSubCategory moves key under the category folder of label by
// rewriting the segment after "assets". Keys outside "assets/" are rejected.
func WithSubCategory(key, label string) (string, error) {
	folder, err := SubCategoryFolder(label)
	if err != nil {
		return "", err
	}
	parts := strings.Split(key, "/")
	if len(parts) < 3 || parts[0] != "assets" {
		return "", fmt.Errorf("key %q is not under assets/", key)
	}
	parts[1] = folder
	return strings.Join(parts, "/"), nil
}

// SubCategoryLabels lists the known labels in classification order.
func SubCategoryLabels() []string {
	labels := make([]string, 0, len(subCategoryRules))
	for _, rule := range subCategoryRules {
		labels = append(labels, rule.label)
	}
	return labels
}
