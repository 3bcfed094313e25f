// Command filetrack prints the lines appended to a log file since its
// previous run. The position is kept in a registry file or in a BoltDB
// store shared by many logs, and survives rotation of the log to <path>.1.
//
//	filetrack read -f /var/log/app.log -r /var/lib/filetrack/app.registry
//	filetrack status -f /var/log/app.log -r /var/lib/filetrack/app.registry
//	filetrack store list -s /var/lib/filetrack/positions.db
package main
