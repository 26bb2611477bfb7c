package date

import "time"

type langMap struct {
	lang     string
	namesMap map[string]time.Weekday
}

var longDayNames = []langMap{
	{
		lang:     "de_DE",
		namesMap: longDayNamesDeDE,
	},
	{
		lang:     "en_US",
		namesMap: longDayNamesEnUS,
	},
}

var shortDayNames = []langMap{
	{
		lang:     "de_DE",
		namesMap: shortDayNamesDeDE,
	},
	{
		lang:     "en_US",
		namesMap: shortDayNamesEnUS,
	},
}

var shortDayNamesDeDE = map[string]time.Weekday{
	"so": time.Sunday,
	"mo": time.Monday,
	"di": time.Tuesday,
	"mi": time.Wednesday,
	"do": time.Thursday,
	"fr": time.Friday,
	"sa": time.Saturday,
}

var longDayNamesDeDE = map[string]time.Weekday{
	"sonntag":    time.Sunday,
	"montag":     time.Monday,
	"dienstag":   time.Tuesday,
	"mittwoch":   time.Wednesday,
	"donnerstag": time.Thursday,
	"freitag":    time.Friday,
	"samstag":    time.Saturday,
	"sonnabend":  time.Saturday,
}

var shortDayNamesEnUS = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

var longDayNamesEnUS = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}
