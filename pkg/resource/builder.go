package resource

import "strings"

// Default limits applied when a raw definition leaves them unset.
const (
	DefaultMaxPageSize    = 100
	DefaultMaxExpandDepth = 1
)

// BuildContract normalizes a raw definition into a Contract. It is a pure,
// total function: well-formed definitions always build. A key name with no
// matching declared field yields a synthesized read-only key field rather
// than an error.
func BuildContract(def *RawDefinition) *Contract {
	c := &Contract{
		Key:            def.Key,
		Route:          def.Route,
		Backend:        def.Backend,
		KeyField:       def.KeyName,
		KeyType:        def.KeyType,
		Operations:     make(map[Operation]OperationContract, len(AllOperations)),
		Policies:       make(map[Operation]string, len(AllOperations)),
		fieldsByAPI:    make(map[string]*FieldContract),
		relationsByAPI: make(map[string]*RelationContract),
	}
	if c.Backend == "" {
		c.Backend = BackendDynamic
	}

	var concurrency *ConcurrencyContract
	keyLower := strings.ToLower(def.KeyName)
	haveKey := false

	for _, rf := range def.Fields {
		f := buildField(rf)
		if strings.ToLower(f.APIName) == keyLower {
			// The key field is immutable regardless of what was declared.
			f.IsKey = true
			f.Immutable = true
			f.InUpdate = false
			haveKey = true
			if f.APIName != "" {
				c.KeyField = f.APIName
			}
		}
		if rf.ConcurrencyToken {
			concurrency = &ConcurrencyContract{
				Mode:       ConcurrencyOptimistic,
				TokenField: f.APIName,
				Required:   rf.ConcurrencyRequired,
			}
		}
		c.Fields = append(c.Fields, f)
	}

	if !haveKey {
		c.Fields = append(c.Fields, FieldContract{
			Name:      def.KeyName,
			APIName:   def.KeyName,
			Type:      def.KeyType,
			InRead:    true,
			Immutable: true,
			IsKey:     true,
		})
	}

	for _, rr := range def.Relations {
		c.Relations = append(c.Relations, buildRelation(rr))
	}

	for i := range c.Fields {
		c.fieldsByAPI[strings.ToLower(c.Fields[i].APIName)] = &c.Fields[i]
	}
	for i := range c.Relations {
		c.relationsByAPI[strings.ToLower(c.Relations[i].APIName)] = &c.Relations[i]
	}

	c.Query = buildQueryContract(def, c.Fields)
	c.Read = buildReadContract(def, c.Relations)
	buildOperations(c, def, concurrency)
	return c
}

// buildField derives the effective membership flags for one field.
// Hidden is a hard deny on every membership; computed fields are
// read-only; immutable fields drop out of update.
func buildField(rf RawField) FieldContract {
	hidden := rf.Hidden
	f := FieldContract{
		Name:       rf.Name,
		APIName:    rf.apiName(),
		Type:       rf.Type,
		Nullable:   rf.Nullable,
		InRead:     rf.InRead && !hidden,
		InCreate:   rf.InCreate && !hidden && !rf.Computed,
		InUpdate:   rf.InUpdate && !hidden && !rf.Immutable && !rf.Computed,
		Filterable: rf.Filterable && !hidden,
		Sortable:   rf.Sortable && !hidden,
		Searchable: rf.Searchable && !hidden,
		Hidden:     hidden,
		Immutable:  rf.Immutable,
		Computed:   rf.Computed,
		Expression: rf.Expression,
		Default:    rf.Default,
		Validation: FieldValidation{
			RequiredOnCreate: rf.Required,
			MinLength:        rf.MinLength,
			MaxLength:        rf.MaxLength,
			Min:              rf.Min,
			Max:              rf.Max,
			Pattern:          rf.Pattern,
			AllowedValues:    rf.AllowedValues,
		},
	}
	return f
}

func buildRelation(rr RawRelation) RelationContract {
	mode := rr.WriteMode
	if mode == "" {
		mode = WriteDisabled
	}
	writeField := rr.WriteField
	if writeField == "" && mode != WriteDisabled {
		writeField = rr.apiName() + "Id"
		if rr.Kind == RelationToMany {
			writeField = rr.apiName() + "Ids"
		}
	}
	foreignKey := rr.ForeignKey
	if foreignKey == "" && (rr.Kind == RelationToOne || mode == WriteByIDList) {
		// The reference lives on this record, under the write field's name.
		foreignKey = writeField
	}
	return RelationContract{
		Name:          rr.Name,
		APIName:       rr.apiName(),
		Kind:          rr.Kind,
		Target:        rr.Target,
		ExpandAllowed: rr.ExpandAllowed,
		DefaultExpand: rr.DefaultExpand,
		WriteMode:     mode,
		WriteField:    writeField,
		Required:      rr.Required,
		ForeignKey:    foreignKey,
	}
}

func buildQueryContract(def *RawDefinition, fields []FieldContract) QueryContract {
	q := QueryContract{
		MaxPageSize: def.MaxPageSize,
		Filterable:  make(map[string]bool),
		Sortable:    make(map[string]bool),
		Searchable:  make(map[string]bool),
		DefaultSort: def.DefaultSort,
	}
	if q.MaxPageSize <= 0 {
		q.MaxPageSize = DefaultMaxPageSize
	}
	for _, f := range fields {
		if f.Filterable {
			q.Filterable[f.APIName] = true
		}
		if f.Sortable {
			q.Sortable[f.APIName] = true
		}
		if f.Searchable {
			q.Searchable[f.APIName] = true
		}
	}
	return q
}

func buildReadContract(def *RawDefinition, relations []RelationContract) ReadContract {
	r := ReadContract{
		Expandable:     make(map[string]bool),
		MaxExpandDepth: def.MaxExpandDepth,
	}
	if r.MaxExpandDepth <= 0 {
		r.MaxExpandDepth = DefaultMaxExpandDepth
	}
	for _, rel := range relations {
		if rel.ExpandAllowed {
			r.Expandable[rel.APIName] = true
		}
		if rel.DefaultExpand {
			r.DefaultExpand = append(r.DefaultExpand, rel.APIName)
		}
	}
	return r
}

// buildOperations derives the per-operation shapes and default security
// policies. The concurrency contract, if any, attaches to update only.
func buildOperations(c *Contract, def *RawDefinition, concurrency *ConcurrencyContract) {
	disabled := make(map[Operation]bool, len(def.Disabled))
	for _, name := range def.Disabled {
		disabled[Operation(strings.ToLower(name))] = true
	}

	read := make(map[string]bool)
	create := make(map[string]bool)
	update := make(map[string]bool)
	required := make(map[string]bool)
	immutable := make(map[string]bool)
	for _, f := range c.Fields {
		if f.InRead {
			read[f.APIName] = true
		}
		if f.InCreate {
			create[f.APIName] = true
		}
		if f.InUpdate {
			update[f.APIName] = true
		}
		if f.Validation.RequiredOnCreate && !f.Hidden {
			required[f.APIName] = true
		}
		if f.Immutable {
			immutable[f.APIName] = true
		}
	}

	// Relation write fields join the create and update allowlists.
	for _, rel := range c.Relations {
		if rel.WriteMode == WriteDisabled {
			continue
		}
		create[rel.WriteField] = true
		update[rel.WriteField] = true
		if rel.Required {
			required[rel.WriteField] = true
		}
	}

	getOutput := copySet(read)
	for name := range c.Read.Expandable {
		getOutput[name] = true
	}

	updateInput := copySet(update)
	if concurrency != nil {
		// The token field may be echoed back even though it is immutable.
		updateInput[concurrency.TokenField] = true
		delete(immutable, concurrency.TokenField)
	}

	c.Operations[OpList] = OperationContract{
		Enabled: !disabled[OpList],
		Input:   map[string]bool{},
		Output:  copySet(read),
	}
	c.Operations[OpGet] = OperationContract{
		Enabled: !disabled[OpGet],
		Input:   map[string]bool{},
		Output:  getOutput,
	}
	c.Operations[OpCreate] = OperationContract{
		Enabled:  !disabled[OpCreate],
		Input:    create,
		Output:   copySet(read),
		Required: required,
	}
	c.Operations[OpUpdate] = OperationContract{
		Enabled:     !disabled[OpUpdate],
		Input:       updateInput,
		Output:      copySet(read),
		Immutable:   immutable,
		Concurrency: concurrency,
	}
	c.Operations[OpDelete] = OperationContract{
		Enabled: !disabled[OpDelete],
		Input:   map[string]bool{},
		Output:  map[string]bool{},
	}

	for _, op := range AllOperations {
		if p, ok := def.Policies[string(op)]; ok && p != "" {
			c.Policies[op] = p
			continue
		}
		c.Policies[op] = def.Route + "." + string(op)
	}
}

func copySet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}
