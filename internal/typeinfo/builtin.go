package typeinfo

import "rescomp/internal/script"

// Namespace of the builtin GUI types in instance resources.
const Namespace = "gui"

var builtinTypes = []script.TypeDesc{
	{
		Name: "Control",
		Props: []script.PropDesc{
			{Name: "Text", Type: script.TypeString},
			{Name: "Visible", Type: script.TypeBool},
			{Name: "Enabled", Type: script.TypeBool},
			{Name: "Width", Type: script.TypeInt},
			{Name: "Height", Type: script.TypeInt},
			{Name: "Background", Type: script.TypeString},
			{Name: "Foreground", Type: script.TypeString},
		},
		Events: []script.EventDesc{
			{Name: "Loaded", Params: []string{script.TypeObject}},
			{Name: "VisibleChanged", Params: []string{script.TypeObject, script.TypeBool}},
		},
	},
	{
		Name: "Window",
		Base: "Control",
		Props: []script.PropDesc{
			{Name: "Title", Type: script.TypeString},
			{Name: "Resizable", Type: script.TypeBool},
		},
		Events: []script.EventDesc{
			{Name: "Closing", Params: []string{script.TypeObject}},
			{Name: "Clicked", Params: []string{script.TypeObject}},
		},
	},
	{
		Name: "Button",
		Base: "Control",
		Events: []script.EventDesc{
			{Name: "Clicked", Params: []string{script.TypeObject}},
		},
	},
	{
		Name: "Label",
		Base: "Control",
		Props: []script.PropDesc{
			{Name: "Wrap", Type: script.TypeBool},
		},
	},
	{
		Name: "TextBox",
		Base: "Control",
		Props: []script.PropDesc{
			{Name: "ReadOnly", Type: script.TypeBool},
			{Name: "MaxLength", Type: script.TypeInt},
		},
		Events: []script.EventDesc{
			{Name: "TextChanged", Params: []string{script.TypeObject, script.TypeString}},
		},
	},
	{
		Name: "CustomControl",
		Base: "Control",
	},
}
