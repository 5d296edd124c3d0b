package ui

// Color helpers return the escape code of the active theme, or an empty
// string when colors are disabled.

func ColorReset() string     { return GetCurrentTheme().sgr("0") }
func ColorRed() string       { t := GetCurrentTheme(); return t.ansi(t.Error) }
func ColorGreen() string     { t := GetCurrentTheme(); return t.ansi(t.Success) }
func ColorYellow() string    { t := GetCurrentTheme(); return t.ansi(t.Warning) }
func ColorBlue() string      { t := GetCurrentTheme(); return t.ansi(t.Primary) }
func ColorMagenta() string   { t := GetCurrentTheme(); return t.ansi(t.Info) }
func ColorCyan() string      { t := GetCurrentTheme(); return t.ansi(t.Primary) }
func ColorGrey() string      { t := GetCurrentTheme(); return t.ansi(t.Secondary) }
func ColorBold() string      { return GetCurrentTheme().sgr("1") }
func ColorUnderline() string { return GetCurrentTheme().sgr("4") }
