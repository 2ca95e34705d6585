package simlog

// Section is one of the count prefixed sections of a simulation log.
type Section int

// Sections in the order they appear in a log.
const (
	SectionVMs Section = iota
	SectionWorkflows
	SectionTasks
	SectionTransfers
	SectionStorageStates

	numSections
)

// Sections lists every section in log order.
var Sections = []Section{SectionVMs, SectionWorkflows, SectionTasks, SectionTransfers, SectionStorageStates}

var sectionNames = [numSections]string{"vms", "workflows", "tasks", "transfers", "storage_states"}

func (s Section) String() string {
	if s < 0 || s >= numSections {
		return "unknown"
	}

	return sectionNames[s]
}

// Transfer directions.
const (
	DirectionUpload   = "UPLOAD"
	DirectionDownload = "DOWNLOAD"
)

// VM is a provisioned virtual machine.
type VM struct {
	ID       string
	Started  float64
	Finished float64
	Cores    float64
	Price    float64 // per billing unit
}

// Workflow is a workflow of the simulated ensemble.
type Workflow struct {
	ID       string
	Priority int
}

// Task is a single task execution. ID is the log row id and TaskID the id of
// the task within its workflow.
type Task struct {
	ID       string
	Workflow string
	TaskID   string
	VM       string
	Started  float64
	Finished float64
	Result   string
}

// Transfer is a file transfer between a VM and the global storage.
type Transfer struct {
	ID        string
	VM        string
	Started   float64
	Finished  float64
	Direction string
	JobID     string
	FileID    string
}

// StorageState is a point sample of global storage utilisation.
type StorageState struct {
	Time       float64
	Readers    int
	Writers    int
	ReadSpeed  float64
	WriteSpeed float64
}

// Log is a decoded simulation log.
type Log struct {
	// Settings is the experiment settings line when the log carries one.
	Settings string

	VMs           map[string]VM
	Workflows     map[string]Workflow
	Tasks         []Task
	Transfers     []Transfer
	StorageStates []StorageState

	vmIDs       []string
	workflowIDs []string
}

func newLog() *Log {
	return &Log{
		VMs:       make(map[string]VM),
		Workflows: make(map[string]Workflow),
	}
}

func (l *Log) addVM(vm VM) {
	if _, ok := l.VMs[vm.ID]; !ok {
		l.vmIDs = append(l.vmIDs, vm.ID)
	}

	l.VMs[vm.ID] = vm
}

func (l *Log) addWorkflow(wf Workflow) {
	if _, ok := l.Workflows[wf.ID]; !ok {
		l.workflowIDs = append(l.workflowIDs, wf.ID)
	}

	l.Workflows[wf.ID] = wf
}

// VMList returns VMs in the order their ids first appear in the log.
func (l *Log) VMList() []VM {
	vms := make([]VM, len(l.vmIDs))
	for i, id := range l.vmIDs {
		vms[i] = l.VMs[id]
	}

	return vms
}

// WorkflowList returns workflows in the order their ids first appear in the
// log.
func (l *Log) WorkflowList() []Workflow {
	wfs := make([]Workflow, len(l.workflowIDs))
	for i, id := range l.workflowIDs {
		wfs[i] = l.Workflows[id]
	}

	return wfs
}
