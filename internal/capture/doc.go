// Package capture loads pages in a browser and saves full-page screenshots.
//
// Controller bounds every capture with two timers. The outer timeout caps
// the whole operation. The shorter settle timeout races the page load: as
// soon as either the load finishes or the settle timer fires, the screenshot
// is taken. A page that never finishes loading is therefore still captured
// in whatever state it reached. Navigation and capture failures are recorded
// on the returned Artifact instead of being returned as errors; a missing
// file is detected later when the screenshot is read.
//
// ChromeBrowser is the chromedp implementation of Browser.
package capture
