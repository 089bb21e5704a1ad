package vdf

import (
	"fmt"
	"regexp"
	"sort"
)

var numericKey = regexp.MustCompile(`^\d+$`)

// InstalledApps maps installed app ids to the library folder holding them.
// Only numeric children of the top-level libraryfolders object are library
// folders; each contributes the keys of its apps object. Folders are visited
// in numeric order and the lowest folder wins when an app is listed twice.
// A folder without a path key maps its apps to "".
func InstalledApps(root Map) (map[string]string, error) {
	libs, ok := root.Object("libraryfolders")
	if !ok {
		return nil, fmt.Errorf("libraryfolders object not found")
	}

	apps := make(map[string]string)
	for _, key := range libs.Keys() {
		if !numericKey.MatchString(key) {
			continue
		}
		folder, ok := libs.Object(key)
		if !ok {
			continue
		}
		path, _ := folder.String("path")
		installed, _ := folder.Object("apps")
		for id := range installed {
			if _, seen := apps[id]; !seen {
				apps[id] = path
			}
		}
	}
	return apps, nil
}

// InstalledAppIDs returns the installed app ids, sorted.
func InstalledAppIDs(root Map) ([]string, error) {
	apps, err := InstalledApps(root)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(apps))
	for id := range apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
