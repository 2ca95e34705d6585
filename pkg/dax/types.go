package dax

import "encoding/xml"

// Adag is the root element of a DAX file.
type Adag struct {
	XMLName xml.Name `xml:"adag"`
	Jobs    []Job    `xml:"job"`
	Childs  []Child  `xml:"child"`
}

// Job is a <job> element. A job becomes a TASK in the DAG.
type Job struct {
	XMLName   xml.Name `xml:"job"`
	ID        string   `xml:"id,attr"`
	Namespace string   `xml:"namespace,attr"`
	Name      string   `xml:"name,attr"`
	Version   string   `xml:"version,attr"`
	Runtime   string   `xml:"runtime,attr"`
	Uses      []Uses   `xml:"uses"`
}

// Uses is a file usage declaration of a job.
type Uses struct {
	XMLName xml.Name `xml:"uses"`
	File    string   `xml:"file,attr"`
	Link    string   `xml:"link,attr"`
	Size    string   `xml:"size,attr"`
}

// Child is used to describe dependencies. A child has parents, which are its
// dependencies. Child.Ref maps to Job.ID.
type Child struct {
	XMLName xml.Name `xml:"child"`
	Ref     string   `xml:"ref,attr"`
	Parents []Parent `xml:"parent"`
}

// Parent is a dependency of a child.
type Parent struct {
	XMLName xml.Name `xml:"parent"`
	Ref     string   `xml:"ref,attr"`
}

// Link directions of a <uses> element.
const (
	LinkInput  = "input"
	LinkOutput = "output"
)
