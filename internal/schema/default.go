package schema

var manufacturingTables = []Table{
	{
		Name:       "Customer",
		Definition: "customer_id INT PRIMARY KEY AUTOINCREMENT NOT NULL, company_name VARCHAR(255) NOT NULL, sector ENUM('Manufacturing', 'Metal Fabrication', 'Automotive', 'Construction', 'Machinery', 'Electronics', 'Plastics', 'Woodworking', 'Textiles', 'Food Processing', 'Packaging', 'Chemical', 'Aerospace', 'Medical Devices') NOT NULL DEFAULT Manufacturing",
	},
	{
		Name:       "Department",
		Definition: "department_id INT PRIMARY KEY AUTOINCREMENT NOT NULL, department_name VARCHAR(255) NOT NULL, budget FLOAT NOT NULL, location VARCHAR(255) NOT NULL, manager_id INT",
	},
	{
		Name:       "Employee",
		Definition: "employee_id INT PRIMARY KEY AUTOINCREMENT NOT NULL, employee_name VARCHAR(255) NOT NULL, employee_position VARCHAR(255), department_id INT",
	},
	{
		Name:       "Invoice",
		Definition: "invoice_id INT PRIMARY KEY AUTOINCREMENT NOT NULL, invoice_number VARCHAR(50) NOT NULL, customer_id INT NOT NULL, project_id INT NOT NULL, amount FLOAT NOT NULL, tax_amount FLOAT NOT NULL DEFAULT 0.0, total_amount FLOAT NOT NULL, issue_date DATE NOT NULL, due_date DATE NOT NULL, status ENUM('DRAFT', 'SENT', 'PAID', 'OVERDUE', 'CANCELLED') NOT NULL DEFAULT 'DRAFT', notes TEXT",
	},
	{
		Name:       "Payment",
		Definition: "payment_id INT PRIMARY KEY AUTOINCREMENT NOT NULL, invoice_id INT NOT NULL, amount FLOAT NOT NULL, payment_date DATE NOT NULL, payment_method ENUM('CREDIT_CARD', 'BANK_TRANSFER', 'CHECK', 'CASH', 'PAYPAL', 'OTHER') NOT NULL, transaction_id VARCHAR(255), notes TEXT",
	},
	{
		Name:       "Projects",
		Definition: "project_id INT PRIMARY KEY AUTOINCREMENT NOT NULL, project_name VARCHAR(255) NOT NULL, customer_id INT NOT NULL, employee_id INT NOT NULL, start_of_project DATE NOT NULL, end_of_project DATE NOT NULL",
	},
	{
		Name:       "Task",
		Definition: "task_id INT PRIMARY KEY AUTOINCREMENT NOT NULL, title VARCHAR(255) NOT NULL, description TEXT, project_id INT NOT NULL, assigned_to INT, created_by INT NOT NULL, status ENUM('NOT_STARTED', 'IN_PROGRESS', 'COMPLETED', 'BLOCKED', 'ON_HOLD') NOT NULL DEFAULT 'NOT_STARTED', priority ENUM('LOW', 'MEDIUM', 'HIGH', 'CRITICAL') NOT NULL DEFAULT 'MEDIUM', due_date DATE, estimated_hours FLOAT, actual_hours FLOAT, created_at TIMESTAMP, updated_at TIMESTAMP",
	},
	{
		Name:       "TimeEntry",
		Definition: "time_entry_id INT PRIMARY KEY AUTOINCREMENT NOT NULL, employee_id INT NOT NULL, project_id INT NOT NULL, task_id INT, date DATE NOT NULL, hours FLOAT NOT NULL, description TEXT, billable BOOLEAN NOT NULL DEFAULT TRUE, approved BOOLEAN NOT NULL DEFAULT FALSE",
	},
}

// Default returns the built-in manufacturing catalog that matches the bundled migrations.
func Default() Catalog {
	catalog, err := New(manufacturingTables)
	if err != nil {
		panic(err)
	}
	return catalog
}
