// Package parser reads security report JSON artifacts into report.Report.
//
// Problems with the document never surface as Go errors: they are recorded
// on the returned report (Report.Errors / Report.Warnings) so that ingestion
// can persist them on the scan row. Only I/O failures are returned as errors.
package parser
